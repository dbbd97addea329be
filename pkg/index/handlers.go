package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/and3rson/yagni/pkg/types"
)

// UploadedArtifact is the response payload for a successful upload.
type UploadedArtifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	File    string `json:"file"`
	Digest  string `json:"digest"`
	Size    int64  `json:"size"`
}

// VersionListing lists the files stored for one version of a package.
type VersionListing struct {
	Version string   `json:"version"`
	Files   []string `json:"files"`
}

// PackageListing lists all stored versions of one package.
type PackageListing struct {
	Name     string           `json:"name"`
	Versions []VersionListing `json:"versions"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// safeComponent rejects anything that could escape the data directory when
// used as a path element.
func safeComponent(value string) (string, error) {
	parsed, err := types.ParseNonEmptyString(value)
	if err != nil {
		return "", err
	}

	clean := parsed.String()
	if strings.ContainsAny(clean, "/\\") || clean == "." || clean == ".." {
		return "", eris.Errorf("%s is not a valid path component", clean)
	}

	return clean, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	record, status, err := s.receiveUpload(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Upload rejected")
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("file", record.File).
		Str("digest", record.Digest).
		Msgf("Stored %s %s", record.Name, record.Version)
	writeJSON(w, http.StatusCreated, record)
}

// receiveUpload consumes the multipart form. The metadata fields have to
// appear before the artifact part; that way the digest can be verified
// while the file is written instead of buffering the whole upload.
func (s *Server) receiveUpload(r *http.Request) (*UploadedArtifact, int, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "expected a multipart form")
	}

	meta := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, http.StatusBadRequest, eris.New("the artifact part is missing")
		}
		if err != nil {
			return nil, http.StatusBadRequest, eris.Wrap(err, "malformed multipart form")
		}

		if part.FormName() != "artifact" {
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			if err != nil {
				return nil, http.StatusBadRequest, eris.Wrapf(err, "failed to read the %s field", part.FormName())
			}

			meta[part.FormName()] = string(value)
			continue
		}

		return s.storeArtifact(meta, part)
	}
}

func (s *Server) storeArtifact(meta map[string]string, part *multipart.Part) (*UploadedArtifact, int, error) {
	name, err := safeComponent(meta["name"])
	if err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "invalid name field")
	}

	version, err := safeComponent(meta["version"])
	if err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "invalid version field")
	}

	declared := strings.ToLower(meta["digest"])
	if declared == "" {
		return nil, http.StatusBadRequest, eris.New("the digest field is missing")
	}

	filename, err := safeComponent(part.FileName())
	if err != nil {
		return nil, http.StatusBadRequest, eris.Wrap(err, "invalid file name")
	}

	versionDir := filepath.Join(s.dataDir, name, version)
	if err := os.MkdirAll(versionDir, os.FileMode(0770)); err != nil {
		return nil, http.StatusInternalServerError, eris.Wrapf(err, "failed to create %s", versionDir)
	}

	dest := filepath.Join(versionDir, filename)
	handle, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, os.FileMode(0660))
	if err != nil {
		if eris.Is(err, os.ErrExist) {
			return nil, http.StatusConflict, eris.Errorf("%s/%s/%s already exists", name, version, filename)
		}

		return nil, http.StatusInternalServerError, eris.Wrapf(err, "failed to create %s", dest)
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(handle, hash), part)
	closeErr := handle.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return nil, http.StatusInternalServerError, eris.Wrapf(err, "failed to store %s", filename)
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	if digest != declared {
		os.Remove(dest)
		return nil, http.StatusBadRequest, eris.Errorf("digest mismatch: declared %s, received %s", declared, digest)
	}

	return &UploadedArtifact{
		Name:    name,
		Version: version,
		File:    filename,
		Digest:  digest,
		Size:    size,
	}, http.StatusCreated, nil
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	listing, err := s.listPackages()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list packages")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list packages"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"packages": listing})
}

func (s *Server) listPackages() ([]PackageListing, error) {
	packageDirs, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", s.dataDir)
	}

	listing := []PackageListing{}
	for _, packageDir := range packageDirs {
		if !packageDir.IsDir() {
			continue
		}

		versionDirs, err := os.ReadDir(filepath.Join(s.dataDir, packageDir.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "failed to read versions of %s", packageDir.Name())
		}

		versions := []VersionListing{}
		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() {
				continue
			}

			files, err := os.ReadDir(filepath.Join(s.dataDir, packageDir.Name(), versionDir.Name()))
			if err != nil {
				return nil, eris.Wrapf(err, "failed to read files of %s %s", packageDir.Name(), versionDir.Name())
			}

			names := []string{}
			for _, file := range files {
				if file.Type().IsRegular() {
					names = append(names, file.Name())
				}
			}

			versions = append(versions, VersionListing{
				Version: versionDir.Name(),
				Files:   names,
			})
		}

		listing = append(listing, PackageListing{
			Name:     packageDir.Name(),
			Versions: versions,
		})
	}

	return listing, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	parts := make([]string, 0, 3)
	for _, key := range []string{"name", "version", "file"} {
		value, err := safeComponent(vars[key])
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		parts = append(parts, value)
	}

	http.ServeFile(w, r, filepath.Join(s.dataDir, filepath.Join(parts...)))
}
