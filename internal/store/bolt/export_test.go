package bolt

import "github.com/boltdb/bolt"

// setUserAttribute writes an arbitrary attribute on a user's link document.
func (s *Store) setUserAttribute(userID, key string, value any) error {
	return s.driver.store.Update(func(tx *bolt.Tx) error {
		return mergeDoc(tx.Bucket(linkBucket), userID, false, func(doc map[string]any) {
			doc[key] = value
		})
	})
}

func (s *Store) userAttribute(userID, key string) (any, error) {
	var v any
	err := s.driver.store.View(func(tx *bolt.Tx) error {
		doc, err := readDoc(tx.Bucket(linkBucket), userID)
		v = doc[key]
		return err
	})
	return v, err
}
