package handler_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadResult struct {
	Success            bool   `json:"success"`
	FileID             string `json:"fileId"`
	RecordID           string `json:"recordId"`
	WebViewLink        string `json:"webViewLink"`
	DirectDownloadLink string `json:"directDownloadLink"`
}

func doUpload(t *testing.T, env *testEnv) uploadResult {
	t.Helper()
	resp, err := env.files.Upload(context.Background(), makeRequest("POST", "/drive/files", uploadBody(t)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var res uploadResult
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &res))
	return res
}

func TestFileHandler_UploadNotLinked(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.files.Upload(context.Background(), makeRequest("POST", "/drive/files", uploadBody(t)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", decodeError(t, resp).Error.Status)
}

func TestFileHandler_UploadListDelete(t *testing.T) {
	env := newTestEnv(t)
	env.link(t)
	ctx := context.Background()

	res := doUpload(t, env)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RecordID)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id="+res.FileID, res.DirectDownloadLink)

	resp, err := env.files.List(ctx, makeRequest("GET", "/drive/files", ""))
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, res.FileID, recs[0]["driveFileId"])
	assert.Equal(t, "Worksheet", recs[0]["title"])

	body, _ := json.Marshal(map[string]string{"fileId": res.RecordID, "driveFileId": res.FileID})
	resp, err = env.files.Delete(ctx, makeRequest("POST", "/drive/files/delete", string(body)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	_, _, ok := env.fake.File(testUserID, res.FileID)
	assert.False(t, ok)
}

func TestFileHandler_DeleteByID(t *testing.T) {
	env := newTestEnv(t)
	env.link(t)
	res := doUpload(t, env)

	req := makeRequest("DELETE", "/drive/files/"+res.RecordID, "")
	req.PathParameters["id"] = res.RecordID

	resp, err := env.files.DeleteByID(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	_, _, ok := env.fake.File(testUserID, res.FileID)
	assert.False(t, ok)
}

func TestFileHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.link(t)
	ctx := context.Background()

	resp, err := env.files.Upload(ctx, makeRequest("POST", "/drive/files", `{"fileContent":"aGk=","fileType":"text/plain"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp).Error.Message, "fileName")

	resp, err = env.files.Delete(ctx, makeRequest("POST", "/drive/files/delete", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFileHandler_Base64EncodedBody(t *testing.T) {
	env := newTestEnv(t)
	env.link(t)

	req := makeRequest("POST", "/drive/files", "")
	req.Body = base64.StdEncoding.EncodeToString([]byte(uploadBody(t)))
	req.IsBase64Encoded = true

	resp, err := env.files.Upload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

func TestFileHandler_RevokedGrant(t *testing.T) {
	env := newTestEnv(t)
	env.link(t)
	env.fake.Revoke(testUserID)

	resp, err := env.files.Upload(context.Background(), makeRequest("POST", "/drive/files", uploadBody(t)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	state, err := env.store.GetLinkState(context.Background(), testUserID)
	require.NoError(t, err)
	assert.False(t, state.Linked)
}
