// Package storage keeps project images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	rootDir     = "/"
	tempPattern = ".upload-*"
)

// DefaultMaxBytes is the largest accepted upload.
const DefaultMaxBytes int64 = 5_000_000

// FieldName is the multipart field carrying the image. Stored filenames are
// prefixed with it.
const FieldName = "image"

var (
	ErrUnsupportedMediaType = errors.New("images only: jpeg, jpg, png, gif or webp")
	ErrFileTooLarge         = errors.New("file exceeds the upload size limit")
	ErrInvalidName          = errors.New("invalid image name")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is an incoming image as received from the client.
type Upload struct {
	Filename    string // client supplied, only its extension is used
	ContentType string // declared MIME type
	Size        int64  // declared size, -1 if unknown
	Body        io.Reader
}

// StoredFile describes a file present in the image directory.
type StoredFile struct {
	Name    string
	ModTime time.Time
}

// ImageStore persists uploaded images under a single directory. All file
// access goes through an afero.Fs rooted at that directory.
type ImageStore struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
}

// NewImageStore creates the directory if needed and returns a store rooted at it.
func NewImageStore(dir string, maxBytes int64) (*ImageStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	store := NewImageStoreFs(afero.NewBasePathFs(osfs, abs), maxBytes)
	store.dir = abs
	return store, nil
}

// NewImageStoreFs returns a store over fs, whose root is the image directory.
// Dir reports an empty path for such a store.
func NewImageStoreFs(fs afero.Fs, maxBytes int64) *ImageStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ImageStore{fs: fs, maxBytes: maxBytes}
}

// Dir returns the absolute image directory on disk.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Check validates an upload's declared size, extension and media type
// without reading its body.
func (s *ImageStore) Check(u *Upload) error {
	if u.Size > s.maxBytes {
		return ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("extension %q: %w", ext, ErrUnsupportedMediaType)
	}
	mediaType, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil || !allowedMediaTypes[strings.ToLower(mediaType)] {
		return fmt.Errorf("media type %q: %w", u.ContentType, ErrUnsupportedMediaType)
	}
	return nil
}

// Save validates and writes the upload, returning the generated filename.
// The body is written to a hidden temporary file and renamed into place, so
// a rejected or failed upload leaves nothing behind.
func (s *ImageStore) Save(ctx context.Context, u *Upload) (string, error) {
	if err := s.Check(u); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := generateName(filepath.Ext(u.Filename))

	tmp, err := afero.TempFile(s.fs, rootDir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			s.fs.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, io.LimitReader(u.Body, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if written > s.maxBytes {
		return "", ErrFileTooLarge
	}

	if err := s.fs.Rename(tmpPath, path.Join(rootDir, name)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	committed = true
	return name, nil
}

// Remove deletes a stored image. A file that is already gone is not an error.
func (s *ImageStore) Remove(name string) error {
	p, err := resolve(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a stored image is present.
func (s *ImageStore) Exists(name string) bool {
	p, err := resolve(name)
	if err != nil {
		return false
	}
	st, err := s.fs.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// List returns the regular files in the image directory. Temporary upload
// files are skipped.
func (s *ImageStore) List() ([]StoredFile, error) {
	infos, err := afero.ReadDir(s.fs, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}
	files := make([]StoredFile, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		files = append(files, StoredFile{Name: info.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}

// resolve maps a stored filename to its path inside the store, rejecting
// anything that could point outside the image directory.
func resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return path.Join(rootDir, name), nil
}

func generateName(ext string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s%s", FieldName, time.Now().UnixMilli(), suffix, strings.ToLower(ext))
}
