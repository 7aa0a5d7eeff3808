package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mailbak/mailbak/internal/checkpoint"
	"github.com/mailbak/mailbak/internal/jmap"
	"github.com/mailbak/mailbak/internal/storage"
)

// EmailClient is the remote capability email sync consumes.
type EmailClient interface {
	CountEmails(ctx context.Context, after time.Time) (int, error)
	QueryEmails(ctx context.Context, after time.Time, position, limit int) ([]jmap.Email, error)
	DownloadBlob(ctx context.Context, blobID string) ([]byte, error)
}

// PageIndexer receives each processed page for full-text indexing.
type PageIndexer interface {
	AddPage(ctx context.Context, emails []jmap.Email, payloads [][]byte) error
}

// EmailSource syncs the email collection. Emails carry a receipt
// timestamp, so the durable cursor is a watermark: a pass queries
// "received on or after the watermark, oldest first" and pages by
// position while the filter stays fixed. The watermark advances to
// the newest receipt time of each committed page, so a fresh pass
// resumes near where the last one stopped.
type EmailSource struct {
	client EmailClient
	store  storage.Store
	index  PageIndexer // nil when search is disabled
	logger *slog.Logger
	cp     checkpoint.Watermark

	// In-pass query state: the filter is pinned at Load so that
	// position paging stays consistent while the watermark moves.
	since    time.Time
	position int
}

// NewEmailSource creates an email sync source. index may be nil, in
// which case pages are persisted without being indexed.
func NewEmailSource(client EmailClient, store storage.Store, index PageIndexer, logger *slog.Logger) *EmailSource {
	return &EmailSource{
		client: client,
		store:  store,
		index:  index,
		logger: logger,
	}
}

func (s *EmailSource) Kind() string { return "emails" }

// Load reads the watermark checkpoint and pins this pass's filter.
func (s *EmailSource) Load(ctx context.Context) error {
	cp, err := checkpoint.LoadWatermark(ctx, s.store, checkpoint.Emails)
	if err != nil {
		return err
	}
	s.cp = cp
	s.since = cp.LastProcessedDate
	s.position = 0
	return nil
}

// Total counts the emails covered by this pass's filter.
func (s *EmailSource) Total(ctx context.Context) (int, error) {
	return s.client.CountEmails(ctx, s.since)
}

// Page fetches the next page of the pass.
func (s *EmailSource) Page(ctx context.Context, limit int) ([]jmap.Email, error) {
	return s.client.QueryEmails(ctx, s.since, s.position, limit)
}

// Process persists the page: metadata writes and blob downloads run
// as two bounded groups in parallel, unordered within the page, and
// both complete before the caller commits the checkpoint. Per-item
// failures are logged and naturally retried if the pass is re-run;
// an index commit failure is fatal for the pass.
func (s *EmailSource) Process(ctx context.Context, emails []jmap.Email) error {
	payloads := make([][]byte, len(emails))

	meta, _ := errgroup.WithContext(ctx)
	meta.SetLimit(ioConcurrency)
	blobs, _ := errgroup.WithContext(ctx)
	blobs.SetLimit(ioConcurrency)

	for i := range emails {
		em := emails[i]
		meta.Go(func() error {
			data, err := json.Marshal(em)
			if err != nil {
				s.logger.Error("serializing email", "id", em.ID, "error", err)
				return nil
			}
			if err := s.store.Write(ctx, storage.EmailPath(em.ID), data); err != nil {
				s.logger.Error("writing email", "id", em.ID, "error", err)
			}
			return nil
		})
		blobs.Go(func() error {
			if em.BlobID == "" {
				return nil
			}
			data, err := s.client.DownloadBlob(ctx, em.BlobID)
			if err != nil {
				s.logger.Error("downloading blob", "id", em.BlobID, "email", em.ID, "error", err)
				return nil
			}
			if err := s.store.Write(ctx, storage.BlobPath(em.BlobID), data); err != nil {
				s.logger.Error("writing blob", "id", em.BlobID, "error", err)
				return nil
			}
			payloads[i] = data
			return nil
		})
	}

	// Barrier: the checkpoint must not move until every item of the
	// page has been attempted.
	_ = meta.Wait()
	_ = blobs.Wait()

	if s.index != nil {
		if err := s.index.AddPage(ctx, emails, payloads); err != nil {
			return fmt.Errorf("indexing page: %w", err)
		}
	}
	return nil
}

// Advance moves the in-pass position past the page and raises the
// watermark to the newest receipt time seen.
func (s *EmailSource) Advance(emails []jmap.Email) {
	s.position += len(emails)
	for _, em := range emails {
		s.cp.Advance(em.ReceivedAt)
	}
}

// Save overwrites the watermark checkpoint.
func (s *EmailSource) Save(ctx context.Context) error {
	return checkpoint.Save(ctx, s.store, checkpoint.Emails, s.cp)
}
