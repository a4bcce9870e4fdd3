package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/haukened/psl-updater/internal/psl/common/clock"
	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

// ListUpdater runs the fetch, normalize, augment, verify, write and record
// stages once, in order.
type ListUpdater struct {
	fetcher    Fetcher
	normalizer Normalizer
	augmenter  Augmenter
	verifier   Verifier
	writer     Writer
	ledger     Ledger
	clock      clock.Clock
	logger     log.Logger
	strict     bool
	newID      func() string
}

// Options wires a ListUpdater. Verifier and Ledger may be nil to skip those
// stages. Clock, Logger and NewID have defaults.
type Options struct {
	Fetcher    Fetcher
	Normalizer Normalizer
	Augmenter  Augmenter
	Verifier   Verifier
	Writer     Writer
	Ledger     Ledger
	Clock      clock.Clock
	Logger     log.Logger
	// Strict turns verification failures into run failures.
	Strict bool
	NewID  func() string
}

// New returns a ListUpdater. Fetcher, Normalizer, Augmenter and Writer are
// required.
func New(opts Options) (*ListUpdater, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("updater: fetcher is required")
	case opts.Normalizer == nil:
		return nil, errors.New("updater: normalizer is required")
	case opts.Augmenter == nil:
		return nil, errors.New("updater: augmenter is required")
	case opts.Writer == nil:
		return nil, errors.New("updater: writer is required")
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &ListUpdater{
		fetcher:    opts.Fetcher,
		normalizer: opts.Normalizer,
		augmenter:  opts.Augmenter,
		verifier:   opts.Verifier,
		writer:     opts.Writer,
		ledger:     opts.Ledger,
		clock:      opts.Clock,
		logger:     opts.Logger,
		strict:     opts.Strict,
		newID:      opts.NewID,
	}, nil
}

// Run performs one update. The destination is only touched once every stage
// before the write has succeeded.
func (u *ListUpdater) Run(ctx context.Context) (domain.Run, error) {
	run := domain.Run{
		ID:         u.newID(),
		StartedAt:  u.clock.Now(),
		SourceURL:  u.fetcher.URL(),
		OutputPath: u.writer.Path(),
	}
	logger := u.logger.With(map[string]any{"run_id": run.ID})
	logger.Info(map[string]any{"url": run.SourceURL, "path": run.OutputPath}, "update_start")

	res, err := u.fetcher.Fetch(ctx)
	if err != nil {
		return run, u.fail(logger, "fetch", err)
	}
	run.StatusCode = res.StatusCode
	run.ETag = res.ETag
	run.LastModified = res.LastModified
	run.FetchedBytes = res.Bytes
	logger.Info(map[string]any{"status": res.StatusCode, "bytes": res.Bytes, "etag": res.ETag}, "fetch_done")

	doc, err := u.normalizer.Normalize(res.Text)
	if err != nil {
		return run, u.fail(logger, "normalize", err)
	}
	logger.Debug(map[string]any{"lines": doc.Len()}, "normalize_done")

	doc, inserted, err := u.augmenter.Augment(doc)
	if err != nil {
		return run, u.fail(logger, "augment", err)
	}
	run.Lines = doc.Len()
	run.Inserted = inserted
	logger.Info(map[string]any{"lines": run.Lines, "inserted": inserted}, "augment_done")

	if err := u.verify(logger, doc, inserted); err != nil {
		return run, u.fail(logger, "verify", err)
	}

	written, err := u.writer.Write(doc)
	if err != nil {
		return run, u.fail(logger, "write", err)
	}
	run.Digest = written.Digest
	run.FinishedAt = u.clock.Now()
	logger.Info(map[string]any{
		"path":     written.Path,
		"bytes":    written.Bytes,
		"digest":   written.Digest,
		"duration": run.Duration().String(),
	}, "write_done")

	u.record(logger, run)
	return run, nil
}

// verify returns an error only in strict mode.
func (u *ListUpdater) verify(logger log.Logger, doc domain.Document, inserted int) error {
	if u.verifier == nil {
		return nil
	}
	summary, err := u.verifier.Verify(doc)
	summary.Inserted = inserted
	fields := summary.Fields()
	if err == nil {
		logger.Info(fields, "verify_done")
		return nil
	}
	fields["error"] = err.Error()
	if len(summary.Duplicates) > 0 {
		fields["duplicate_rules"] = summary.Duplicates
	}
	if len(summary.Malformed) > 0 {
		fields["malformed_rules"] = summary.Malformed
	}
	if u.strict {
		logger.Error(fields, "verify_failed")
		return err
	}
	logger.Warn(fields, "verify_failed")
	return nil
}

// record stores run in the ledger. Failures are logged only; the file is
// already written.
func (u *ListUpdater) record(logger log.Logger, run domain.Run) {
	if u.ledger == nil {
		return
	}
	prev, err := u.ledger.LastDigest()
	switch {
	case err != nil:
		logger.Warn(map[string]any{"error": err.Error()}, "ledger_read_failed")
	case prev != "":
		logger.Info(map[string]any{
			"previous_digest": prev,
			"unchanged":       prev == run.Digest,
		}, "ledger_compare")
	}
	if err := u.ledger.Record(run); err != nil {
		logger.Warn(map[string]any{"error": err.Error()}, "ledger_record_failed")
		return
	}
	n, err := u.ledger.Count()
	if err != nil {
		logger.Warn(map[string]any{"error": err.Error()}, "ledger_count_failed")
		return
	}
	logger.Debug(map[string]any{"runs": n}, "ledger_recorded")
}

func (u *ListUpdater) fail(logger log.Logger, stage string, err error) error {
	logger.Error(map[string]any{"stage": stage, "error": err.Error()}, "update_failed")
	return fmt.Errorf("%s: %w", stage, err)
}
