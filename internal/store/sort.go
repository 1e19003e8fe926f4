package store

import (
	"sort"

	"github.com/schoolmaps/drivelink/internal/model"
)

// SortNewestFirst orders records by CreatedAt descending, breaking ties by ID.
func SortNewestFirst(recs []model.UploadedFileRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
