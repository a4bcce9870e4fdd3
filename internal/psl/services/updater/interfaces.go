package updater

import (
	"context"

	"github.com/haukened/psl-updater/internal/psl/domain"
	"github.com/haukened/psl-updater/internal/psl/gateways/fetcher"
	"github.com/haukened/psl-updater/internal/psl/repos/resource"
)

// Fetcher downloads the source document.
type Fetcher interface {
	Fetch(ctx context.Context) (fetcher.Result, error)
	URL() string
}

// Normalizer strips comments and blank lines.
type Normalizer interface {
	Normalize(text string) (domain.Document, error)
}

// Augmenter inserts encoded variants of non-ASCII lines and reports how many
// were added.
type Augmenter interface {
	Augment(doc domain.Document) (domain.Document, int, error)
}

// Verifier summarizes a finished document.
type Verifier interface {
	Verify(doc domain.Document) (domain.Summary, error)
}

// Writer replaces the destination file.
type Writer interface {
	Write(doc domain.Document) (resource.Written, error)
	Path() string
}

// Ledger keeps a history of successful runs. It is optional.
type Ledger interface {
	Record(run domain.Run) error
	LastDigest() (string, error)
	Count() (int, error)
}
