package index

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and3rson/yagni/pkg/config"
	"github.com/and3rson/yagni/pkg/publish"
	"github.com/and3rson/yagni/pkg/storage"
)

const testToken = "test-token"

func newTestIndex(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	dataDir := filepath.Join(t.TempDir(), "data")
	cfg := &config.Config{}
	cfg.Index.Token = testToken
	cfg.Index.DataDir = dataDir

	srv, err := New(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, dataDir
}

func testClient(t *testing.T, ts *httptest.Server, withLedger, skipExisting bool) *publish.Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.Publish.URL = ts.URL
	cfg.Publish.Token = testToken
	cfg.Publish.Timeout = 60
	cfg.Publish.SkipExisting = skipExisting

	var ledger *storage.Ledger
	if withLedger {
		var err error
		ledger, err = storage.OpenLedger(filepath.Join(t.TempDir(), storage.LedgerFile))
		require.NoError(t, err)
		t.Cleanup(func() { ledger.Close() })
	}

	return publish.NewClient(cfg, ledger)
}

func quietCtx() context.Context {
	logger := zerolog.Nop()
	return logger.WithContext(context.Background())
}

func postForm(t *testing.T, ts *httptest.Server, token string, fields map[string]string, filename, content string) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, key := range []string{"name", "version", "digest"} {
		if value, ok := fields[key]; ok {
			require.NoError(t, writer.WriteField(key, value))
		}
	}

	if filename != "" {
		part, err := writer.CreateFormFile("artifact", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/upload", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestIndex(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestUploadRequiresToken(t *testing.T) {
	ts, _ := newTestIndex(t)

	resp := postForm(t, ts, "", map[string]string{}, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp = postForm(t, ts, "wrong-token", map[string]string{}, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadRoundTrip(t *testing.T) {
	ts, dataDir := newTestIndex(t)

	artifact := filepath.Join(t.TempDir(), "demo-0.1.0.tar.gz")
	require.NoError(t, os.WriteFile(artifact, []byte("archive bytes"), 0o600))

	client := testClient(t, ts, true, true)
	status, err := client.UploadFile(quietCtx(), "demo", "0.1.0", artifact)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusUploaded, status)

	stored, err := os.ReadFile(filepath.Join(dataDir, "demo", "0.1.0", "demo-0.1.0.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(stored))

	// the ledger makes the second run a no-op
	status, err = client.UploadFile(quietCtx(), "demo", "0.1.0", artifact)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusAlreadySent, status)

	// a client without a ledger hits the index's conflict answer instead
	status, err = testClient(t, ts, false, true).UploadFile(quietCtx(), "demo", "0.1.0", artifact)
	require.NoError(t, err)
	assert.Equal(t, publish.StatusExists, status)

	// without skip-existing a conflict is an error
	_, err = testClient(t, ts, false, false).UploadFile(quietCtx(), "demo", "0.1.0", artifact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// download what was uploaded
	resp, err := http.Get(ts.URL + "/files/demo/0.1.0/demo-0.1.0.tar.gz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(content))

	// and it shows up in the listing
	resp, err = http.Get(ts.URL + "/api/v1/packages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listing struct {
		Packages []PackageListing `json:"packages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Packages, 1)
	assert.Equal(t, "demo", listing.Packages[0].Name)
	require.Len(t, listing.Packages[0].Versions, 1)
	assert.Equal(t, "0.1.0", listing.Packages[0].Versions[0].Version)
	assert.Equal(t, []string{"demo-0.1.0.tar.gz"}, listing.Packages[0].Versions[0].Files)
}

func TestUploadRejectsDigestMismatch(t *testing.T) {
	ts, dataDir := newTestIndex(t)

	resp := postForm(t, ts, testToken, map[string]string{
		"name":    "demo",
		"version": "0.1.0",
		"digest":  strings.Repeat("0", 64),
	}, "demo.tar.gz", "content")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "digest mismatch")

	_, err := os.Stat(filepath.Join(dataDir, "demo", "0.1.0", "demo.tar.gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadRejectsUnsafeNames(t *testing.T) {
	ts, _ := newTestIndex(t)

	resp := postForm(t, ts, testToken, map[string]string{
		"name":    "../evil",
		"version": "0.1.0",
		"digest":  strings.Repeat("0", 64),
	}, "demo.tar.gz", "content")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsMissingArtifact(t *testing.T) {
	ts, _ := newTestIndex(t)

	resp := postForm(t, ts, testToken, map[string]string{
		"name":    "demo",
		"version": "0.1.0",
		"digest":  strings.Repeat("0", 64),
	}, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadMissingFile(t *testing.T) {
	ts, _ := newTestIndex(t)

	resp, err := http.Get(ts.URL + "/files/demo/0.1.0/nope.tar.gz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
