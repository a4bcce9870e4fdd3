package augmenter

import (
	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

// Encoder produces the ASCII-compatible form of a rule line.
type Encoder interface {
	ToASCII(line string) (string, error)
}

// Augmenter interleaves punycode variants after internationalized rules.
type Augmenter struct {
	encoder Encoder
	logger  log.Logger
}

// New returns an Augmenter. A nil logger discards output.
func New(encoder Encoder, logger log.Logger) *Augmenter {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Augmenter{encoder: encoder, logger: logger}
}

// Augment returns a new document in which every line whose encoding differs
// from the line itself is immediately followed by that encoding. Relative
// order of the input lines is preserved and the input is not modified.
//
// When the next input line already is the encoding, nothing is inserted, so
// augmenting an augmented document is a no-op.
//
// The first line that cannot be encoded aborts with a *domain.EncodingError.
func (a *Augmenter) Augment(doc domain.Document) (domain.Document, int, error) {
	lines := doc.Lines
	out := make([]string, 0, len(lines)+len(lines)/64)
	inserted := 0

	for i, line := range lines {
		out = append(out, line)

		encoded, err := a.encoder.ToASCII(line)
		if err != nil {
			a.logger.Debug(map[string]any{"line": i + 1, "text": line, "error": err.Error()}, "augment_encode_failed")
			return domain.Document{}, 0, &domain.EncodingError{Line: i + 1, Text: line, Err: err}
		}
		if encoded == line {
			continue
		}
		if i+1 < len(lines) && lines[i+1] == encoded {
			a.logger.Debug(map[string]any{"line": i + 1, "encoded": encoded}, "augment_skip_present")
			continue
		}

		out = append(out, encoded)
		inserted++
		a.logger.Debug(map[string]any{"line": i + 1, "text": line, "encoded": encoded}, "augment_insert")
	}

	a.logger.Debug(map[string]any{"lines": len(out), "inserted": inserted}, "augment_done")
	return domain.NewDocument(out), inserted, nil
}
