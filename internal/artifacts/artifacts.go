package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"luster/internal/config"
)

// ErrNotFound indicates no artifact exists for the job yet. While a job is
// in flight this is an expected condition, not a failure.
var ErrNotFound = errors.New("artifact not found")

// resultExtensions is the fixed priority order for locating output
// artifacts. The first match wins.
var resultExtensions = []string{".png", ".jpg", ".jpeg"}

// uploadExtensions is the set of recognized input extensions. Uploads with
// any other (or no) extension are persisted as DefaultExtension.
var uploadExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".bmp":  {},
}

// DefaultExtension is used when an upload has no recognized extension.
const DefaultExtension = ".png"

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// Artifact is one resolved output variant.
type Artifact struct {
	Path        string
	ContentType string
	Data        []byte
}

// Locator resolves input and output files for jobs against the configured
// storage directories. File existence is the only synchronization channel
// with the external worker, which writes outputs to a temporary name and
// renames on completion; exact-name stats therefore never observe a
// partially written artifact.
type Locator struct {
	uploadDir  string
	resultsDir string
}

// NewLocator builds a Locator from the configured paths.
func NewLocator(cfg *config.Config) *Locator {
	return &Locator{
		uploadDir:  cfg.Paths.UploadDir,
		resultsDir: cfg.Paths.ResultsDir,
	}
}

// NormalizeExtension returns the lowercased extension of originalFilename
// when it is a recognized image extension, or DefaultExtension otherwise.
func NormalizeExtension(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if _, ok := uploadExtensions[ext]; ok {
		return ext
	}
	return DefaultExtension
}

// ContentTypeFor maps an artifact extension to its MIME type.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// InputPath returns the upload staging path for a job with the given
// extension.
func (l *Locator) InputPath(jobID, ext string) string {
	return filepath.Join(l.uploadDir, jobID+ext)
}

// InputExists reports whether the persisted upload for jobID is present
// under any recognized extension.
func (l *Locator) InputExists(jobID string) (bool, error) {
	for ext := range uploadExtensions {
		info, err := os.Stat(filepath.Join(l.uploadDir, jobID+ext))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return false, fmt.Errorf("stat upload: %w", err)
		}
		if !info.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// Locate returns the path of the first output artifact for jobID in the
// fixed extension priority order, or ErrNotFound when none exists yet.
func (l *Locator) Locate(jobID string) (string, error) {
	for _, ext := range resultExtensions {
		path := filepath.Join(l.resultsDir, jobID+ext)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat artifact: %w", err)
		}
		if !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, jobID)
}

// ResolveSingle returns the bytes and content type of the first matching
// artifact, or ErrNotFound while processing is still in flight.
func (l *Locator) ResolveSingle(jobID string) (*Artifact, error) {
	path, err := l.Locate(jobID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &Artifact{
		Path:        path,
		ContentType: ContentTypeFor(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// ResolveAll returns every matching output variant in priority order.
// ErrNotFound only when zero variants exist.
func (l *Locator) ResolveAll(jobID string) ([]*Artifact, error) {
	var out []*Artifact
	for _, ext := range resultExtensions {
		path := filepath.Join(l.resultsDir, jobID+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read artifact: %w", err)
		}
		out = append(out, &Artifact{
			Path:        path,
			ContentType: ContentTypeFor(ext),
			Data:        data,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return out, nil
}
