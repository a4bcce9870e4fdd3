package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// openFile is swapped in tests to simulate disk failures.
var openFile = func(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
}

// Written describes the file produced by a Write.
type Written struct {
	Path   string
	Bytes  int
	Digest string // hex SHA-256 of the content
}

// Writer replaces the resource file with a document.
type Writer struct {
	path   string
	logger log.Logger
}

// New returns a Writer for path. A nil logger discards output.
func New(path string, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Writer{path: path, logger: logger}
}

// Path returns the destination file.
func (w *Writer) Path() string { return w.path }

// Write truncates the destination and writes the document's lines joined by
// "\n", without a trailing line break. Missing parent directories are created.
// The file is opened only after the content is ready; a failure while writing
// may leave it truncated. Every failure is a *domain.IOError.
func (w *Writer) Write(doc domain.Document) (Written, error) {
	content := []byte(doc.Text())
	sum := sha256.Sum256(content)

	if err := os.MkdirAll(filepath.Dir(w.path), dirPerm); err != nil {
		return Written{}, w.fail(fmt.Errorf("create directory: %w", err))
	}

	f, err := openFile(w.path)
	if err != nil {
		return Written{}, w.fail(err)
	}
	n, err := f.Write(content)
	if err != nil {
		_ = f.Close()
		return Written{}, w.fail(err)
	}
	if err := f.Close(); err != nil {
		return Written{}, w.fail(err)
	}

	out := Written{Path: w.path, Bytes: n, Digest: hex.EncodeToString(sum[:])}
	w.logger.Debug(map[string]any{"path": out.Path, "bytes": out.Bytes, "digest": out.Digest}, "write_done")
	return out, nil
}

func (w *Writer) fail(err error) error {
	w.logger.Debug(map[string]any{"path": w.path, "error": err.Error()}, "write_failed")
	return &domain.IOError{Path: w.path, Err: err}
}
