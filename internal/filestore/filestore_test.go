package filestore

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newStore(t *testing.T, maxSize int64) *Store {
	t.Helper()
	s, err := New(t.TempDir(), maxSize, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return s
}

func TestPut_ContentAddressed(t *testing.T) {
	req := require.New(t)
	s := newStore(t, 1<<20)

	first, err := s.Put(bytes.NewReader(pngHeader))
	req.NoError(err)
	req.Equal("image/png", first.MimeType)
	req.True(strings.HasSuffix(first.Name, ".png"))
	req.Equal(URLPrefix+first.Name, first.URL)
	req.EqualValues(len(pngHeader), first.Size)

	second, err := s.Put(bytes.NewReader(pngHeader))
	req.NoError(err)
	req.Equal(first, second)

	path, err := s.Path(first.Name)
	req.NoError(err)
	stored, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal(pngHeader, stored)

	entries, err := os.ReadDir(s.dir)
	req.NoError(err)
	req.Len(entries, 1)
}

func TestPut_Limits(t *testing.T) {
	req := require.New(t)
	s := newStore(t, 8)

	_, err := s.Put(strings.NewReader("more than eight bytes"))
	req.ErrorIs(err, ErrTooLarge)

	_, err = s.Put(strings.NewReader(""))
	req.Error(err)

	entries, err := os.ReadDir(s.dir)
	req.NoError(err)
	req.Empty(entries)
}

func TestPath_RejectsForeignNames(t *testing.T) {
	s := newStore(t, 0)
	for _, name := range []string{"../secret", "notes.txt", strings.Repeat("a", 64)} {
		_, err := s.Path(name)
		require.ErrorIs(t, err, ErrNotFound, name)
	}
}
