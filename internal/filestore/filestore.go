// Package filestore keeps uploaded blobs on disk under the hex sha256 of
// their content, so the same bytes uploaded twice share one file and one URL.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/thereayou/zylo/pkg/apperrors"
)

const URLPrefix = "/files/"

var (
	ErrTooLarge = apperrors.InvalidArg("file exceeds the upload limit")
	ErrNotFound = apperrors.NotFound("file not found")

	blobName = regexp.MustCompile(`^[0-9a-f]{64}(\.[0-9a-z]+)?$`)
)

type Blob struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type Store struct {
	dir     string
	maxSize int64
	log     *slog.Logger
}

func New(dir string, maxSize int64, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize, log: log}, nil
}

// Put stores the content of r and returns where it can be fetched.
func (s *Store) Put(r io.Reader) (Blob, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return Blob{}, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	hash := sha256.New()
	limit := s.maxSize
	if limit <= 0 {
		limit = 1<<63 - 1
	}
	size, err := io.Copy(io.MultiWriter(tmp, hash), io.LimitReader(r, limit))
	if err != nil {
		return Blob{}, err
	}
	if extra, _ := io.CopyN(io.Discard, r, 1); extra > 0 {
		return Blob{}, ErrTooLarge
	}
	if size == 0 {
		return Blob{}, apperrors.InvalidArg("file is empty")
	}

	header := make([]byte, 3072)
	n, err := tmp.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return Blob{}, err
	}
	mime := mimetype.Detect(header[:n])

	name := hex.EncodeToString(hash.Sum(nil)) + mime.Extension()
	blob := Blob{Name: name, URL: URLPrefix + name, MimeType: mime.String(), Size: size}

	target := filepath.Join(s.dir, name)
	if _, err := os.Stat(target); err == nil {
		s.log.Debug("Blob already stored", "name", name)
		return blob, nil
	}
	if err := tmp.Close(); err != nil {
		return Blob{}, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Blob{}, err
	}
	s.log.Info("Blob stored", "name", name, "mime_type", blob.MimeType, "size", size)
	return blob, nil
}

// Path resolves a blob name to its file. Names that were not produced by Put
// are rejected.
func (s *Store) Path(name string) (string, error) {
	if !blobName.MatchString(name) {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}
