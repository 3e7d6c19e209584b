// Package storage persists uploaded photo files on local disk and produces
// thumbnails. Handlers only ever see the returned web paths; the Photo
// entity stores them as opaque strings.
package storage

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	_ "image/gif"
	_ "image/png"
)

// MaxUploadBytes caps the accepted photo size
const MaxUploadBytes = 10 << 20

var (
	// ErrUnsupportedType is returned for non-image uploads
	ErrUnsupportedType = errors.New("only jpeg, png and gif files are allowed")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes
	ErrTooLarge = errors.New("file exceeds the 10MB upload limit")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// DiskStorage writes photo files under a single uploads directory
type DiskStorage struct {
	dir string
}

// NewDiskStorage creates the uploads directory if needed
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStorage{dir: dir}, nil
}

// Dir returns the uploads directory, for serving static files
func (s *DiskStorage) Dir() string {
	return s.dir
}

// Save stores the uploaded file under a random name and writes a 300px
// thumbnail next to it. Returns the web paths of the photo and thumbnail.
func (s *DiskStorage) Save(r io.Reader, originalName string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return "", "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", "", err
	}
	if len(data) > MaxUploadBytes {
		return "", "", ErrTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", ErrUnsupportedType
	}

	name := uuid.New().String()
	fileName := name + ext
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return "", "", err
	}

	thumbName := name + "_thumb.jpg"
	thumbFile, err := os.Create(filepath.Join(s.dir, thumbName))
	if err != nil {
		os.Remove(filepath.Join(s.dir, fileName))
		return "", "", err
	}
	defer thumbFile.Close()

	thumb := resize.Thumbnail(300, 300, img, resize.Lanczos3)
	if err := jpeg.Encode(thumbFile, thumb, nil); err != nil {
		os.Remove(filepath.Join(s.dir, fileName))
		os.Remove(filepath.Join(s.dir, thumbName))
		return "", "", err
	}

	return "/uploads/" + fileName, "/uploads/" + thumbName, nil
}

// Delete removes the file behind a previously returned web path. Missing
// files are not an error; deletion must be idempotent for cascades.
func (s *DiskStorage) Delete(webPath string) error {
	if webPath == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, path.Base(webPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
