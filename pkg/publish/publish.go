// Package publish uploads build artifacts to a package index.
//
// Uploads are streamed as multipart forms (metadata fields first, then the
// artifact itself) so large archives never have to fit in memory. A local
// ledger remembers successful uploads which makes re-running the upload
// task after a partial failure cheap and safe.
package publish

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/and3rson/yagni/pkg"
	"github.com/and3rson/yagni/pkg/clock"
	"github.com/and3rson/yagni/pkg/config"
	"github.com/and3rson/yagni/pkg/dist"
	"github.com/and3rson/yagni/pkg/storage"
	"github.com/and3rson/yagni/pkg/types"
)

// Status describes what happened to a single artifact.
type Status string

const (
	// StatusUploaded means the index accepted the artifact.
	StatusUploaded Status = "uploaded"
	// StatusAlreadySent means the ledger shows a previous successful upload.
	StatusAlreadySent Status = "already sent"
	// StatusExists means the index reported that it already has the artifact.
	StatusExists Status = "exists"
)

// Client uploads artifacts to a single package index.
type Client struct {
	baseURL      string
	hc           *http.Client
	token        string
	username     string
	password     string
	skipExisting bool
	ledger       *storage.Ledger
}

// NewClient builds a client from the publish section of the configuration.
// The ledger is optional; without it every file is uploaded unconditionally.
func NewClient(cfg *config.Config, ledger *storage.Ledger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Publish.URL, "/"),
		hc: &http.Client{
			Timeout: time.Duration(cfg.Publish.Timeout) * time.Second,
		},
		token:        cfg.Publish.Token,
		username:     cfg.Publish.Username,
		password:     cfg.Publish.Password,
		skipExisting: cfg.Publish.SkipExisting,
		ledger:       ledger,
	}
}

// DefaultFiles returns every regular file in the given output directory,
// sorted by name.
func DefaultFiles(distDir string) ([]string, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to read %s (did the build task run?)", distDir)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(distDir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// UploadFile uploads one file, skipping work the ledger or the index proves
// unnecessary.
func (c *Client) UploadFile(ctx context.Context, name, version, path string) (Status, error) {
	logger := zerolog.Ctx(ctx)

	digest, size, err := dist.FileDigest(path)
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	if c.skipExisting && c.ledger != nil {
		rec, err := c.ledger.Find(c.baseURL, digest)
		if err != nil {
			return "", err
		}

		if rec != nil {
			logger.Info().
				Str("file", base).
				Msgf("Already uploaded %s, skipping", rec.UploadedAt.Format(time.RFC3339))
			return StatusAlreadySent, nil
		}
	}

	handle, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to open %s", path)
	}
	defer handle.Close()

	body, contentType := formBody(name, version, digest, base, handle, size)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", body)
	if err != nil {
		return "", eris.Wrap(err, "Failed to build upload request")
	}

	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to upload %s", base)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		// accepted
	case http.StatusConflict:
		if !c.skipExisting {
			return "", eris.Errorf("%s already exists on %s", base, c.baseURL)
		}

		logger.Warn().Str("file", base).Msg("Index already has this artifact, skipping")
		if err := c.remember(base, digest); err != nil {
			return "", err
		}
		return StatusExists, nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", eris.Errorf("Upload of %s failed with status %d: %s",
			base, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := c.remember(base, digest); err != nil {
		return "", err
	}

	logger.Info().Str("file", base).Str("digest", digest).Msg("Uploaded")
	return StatusUploaded, nil
}

func (c *Client) remember(file, digest string) error {
	if c.ledger == nil {
		return nil
	}

	uploadedAt, err := types.NewUTCTime(clock.NowUTC())
	if err != nil {
		return err
	}

	return c.ledger.Record(storage.UploadRecord{
		File:       file,
		Digest:     digest,
		Index:      c.baseURL,
		UploadedAt: uploadedAt,
	})
}

// formBody assembles the streaming multipart body. The metadata fields come
// before the artifact part; the index relies on that order to verify the
// digest while the upload is still in flight.
func formBody(name, version, digest, filename string, handle io.Reader, size int64) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeForm(writer, name, version, digest, filename, handle, size)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	return pr, writer.FormDataContentType()
}

func writeForm(writer *multipart.Writer, name, version, digest, filename string, handle io.Reader, size int64) error {
	fields := [][2]string{{"name", name}, {"version", version}, {"digest", digest}}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return eris.Wrapf(err, "Failed to write form field %s", field[0])
		}
	}

	part, err := writer.CreateFormFile("artifact", filename)
	if err != nil {
		return eris.Wrap(err, "Failed to create the artifact part")
	}

	bar := pkg.GetProgressBar(size, "      upload")
	_, err = io.Copy(io.MultiWriter(part, bar), handle)
	bar.Finish()
	if err != nil {
		return eris.Wrapf(err, "Failed to stream %s", filename)
	}

	return nil
}
