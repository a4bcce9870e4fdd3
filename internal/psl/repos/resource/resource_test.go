package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/psl-updater/internal/psl/domain"
)

type failingWriteCloser struct {
	writeErr error
	closeErr error
}

func (f *failingWriteCloser) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *failingWriteCloser) Close() error { return f.closeErr }

func swapOpenFile(t *testing.T, fn func(string) (io.WriteCloser, error)) {
	t.Helper()
	orig := openFile
	openFile = fn
	t.Cleanup(func() { openFile = orig })
}

func TestWrite_CreatesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Resources", "public_suffix_list.dat")
	w := New(path, nil)
	assert.Equal(t, path, w.Path())

	first, err := w.Write(domain.NewDocument([]string{"com", "bücher.de", "xn--bcher-kva.de", "net", "org"}))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "com\nbücher.de\nxn--bcher-kva.de\nnet\norg", string(got))
	assert.Equal(t, len(got), first.Bytes)

	sum := sha256.Sum256(got)
	assert.Equal(t, hex.EncodeToString(sum[:]), first.Digest)

	// shorter content must fully replace the old file
	_, err = w.Write(domain.NewDocument([]string{"com"}))
	require.NoError(t, err)
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "com", string(got))
}

func TestWrite_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "Resources")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	_, err := New(filepath.Join(blocker, "public_suffix_list.dat"), nil).Write(domain.NewDocument([]string{"com"}))
	require.Error(t, err)

	var ioe *domain.IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, filepath.Join(blocker, "public_suffix_list.dat"), ioe.Path)
}

func TestWrite_OpenWriteCloseFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psl.dat")
	diskFull := errors.New("no space left on device")

	tests := []struct {
		name string
		open func(string) (io.WriteCloser, error)
	}{
		{"open", func(string) (io.WriteCloser, error) { return nil, os.ErrPermission }},
		{"write", func(string) (io.WriteCloser, error) { return &failingWriteCloser{writeErr: diskFull}, nil }},
		{"close", func(string) (io.WriteCloser, error) { return &failingWriteCloser{closeErr: diskFull}, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapOpenFile(t, tt.open)

			_, err := New(path, nil).Write(domain.NewDocument([]string{"com"}))
			require.Error(t, err)

			var ioe *domain.IOError
			require.True(t, errors.As(err, &ioe))
			assert.Equal(t, path, ioe.Path)
		})
	}
}
