// Package restore pushes backed-up emails back onto a JMAP account,
// recreating whatever part of the mailbox hierarchy the account is
// missing first.
package restore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/mailbak/mailbak/internal/jmap"
	"github.com/mailbak/mailbak/internal/storage"
)

// Concurrent object loads and imports per restore.
const restoreConcurrency = 10

// Remote is the JMAP write surface a restore needs.
type Remote interface {
	ListMailboxIDs(ctx context.Context) ([]string, error)
	CreateMailbox(ctx context.Context, mb jmap.Mailbox) (string, error)
	UploadBlob(ctx context.Context, data []byte) (string, error)
	ImportEmail(ctx context.Context, blobID string, mailboxIDs map[string]bool, keywords map[string]bool, receivedAt time.Time) (string, error)
}

// Result summarizes what a restore changed on the server.
type Result struct {
	MailboxesCreated int
	EmailsImported   int
}

// Engine restores emails from a backup store to a remote account.
type Engine struct {
	remote Remote
	store  storage.Store
	logger *slog.Logger
}

func NewEngine(remote Remote, store storage.Store, logger *slog.Logger) *Engine {
	return &Engine{remote: remote, store: store, logger: logger}
}

// Restore imports the named emails. Mailboxes the emails reference
// that no longer exist on the server are recreated first, parents
// before children, and the server assigns fresh ids for everything;
// the backup is never mutated.
func (e *Engine) Restore(ctx context.Context, emailIDs []string) (Result, error) {
	ctx, span := otel.Tracer("mailbak/restore").Start(ctx, "Restore")
	defer span.End()
	span.SetAttributes(attribute.Int("restore.emails", len(emailIDs)))

	emails, err := e.loadEmails(ctx, emailIDs)
	if err != nil {
		return Result{}, err
	}

	remap, created, err := e.ensureMailboxes(ctx, emails)
	if err != nil {
		return Result{MailboxesCreated: created}, err
	}

	imported, err := e.importEmails(ctx, emails, remap)
	return Result{MailboxesCreated: created, EmailsImported: imported}, err
}

// loadEmails reads every requested email record up front. A single
// missing or corrupt record fails the restore before anything touches
// the server.
func (e *Engine) loadEmails(ctx context.Context, ids []string) ([]jmap.Email, error) {
	emails := make([]jmap.Email, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			data, err := e.store.Read(ctx, storage.EmailPath(id))
			if err != nil {
				return fmt.Errorf("loading email %s: %w", id, err)
			}
			if err := json.Unmarshal(data, &emails[i]); err != nil {
				return fmt.Errorf("decoding email %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return emails, nil
}

// ensureMailboxes recreates the mailboxes the emails reference that
// are absent from the server, including absent ancestors, and returns
// the old-to-new id mapping for the created ones.
func (e *Engine) ensureMailboxes(ctx context.Context, emails []jmap.Email) (map[string]string, int, error) {
	referenced := make(map[string]bool)
	for _, em := range emails {
		for id := range em.MailboxIDs {
			referenced[id] = true
		}
	}

	remoteIDs, err := e.remote.ListMailboxIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("listing remote mailboxes: %w", err)
	}
	remote := make(map[string]bool, len(remoteIDs))
	for _, id := range remoteIDs {
		remote[id] = true
	}

	ids := make([]string, 0, len(referenced))
	for id := range referenced {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Walk each parent chain until it reaches a mailbox the server
	// still has, collecting everything absent along the way.
	missing := make(map[string]jmap.Mailbox)
	for _, id := range ids {
		for id != "" && !remote[id] {
			if _, loaded := missing[id]; loaded {
				break
			}
			data, err := e.store.Read(ctx, storage.MailboxPath(id))
			if err != nil {
				return nil, 0, fmt.Errorf("loading mailbox %s: %w", id, err)
			}
			var mb jmap.Mailbox
			if err := json.Unmarshal(data, &mb); err != nil {
				return nil, 0, fmt.Errorf("decoding mailbox %s: %w", id, err)
			}
			missing[id] = mb
			id = mb.ParentID
		}
	}

	toCreate := make([]jmap.Mailbox, 0, len(missing))
	for _, mb := range missing {
		toCreate = append(toCreate, mb)
	}
	ordered, err := orderByHierarchy(toCreate)
	if err != nil {
		return nil, 0, err
	}

	remap := make(map[string]string, len(ordered))
	for _, mb := range ordered {
		// A parent created moments ago goes by its new id; a parent
		// the server kept goes by its original one.
		if newID, ok := remap[mb.ParentID]; ok {
			mb.ParentID = newID
		}
		newID, err := e.remote.CreateMailbox(ctx, mb)
		if err != nil {
			return remap, len(remap), fmt.Errorf("recreating mailbox %q: %w", mb.Name, err)
		}
		e.logger.Info("recreated mailbox", "name", mb.Name, "old_id", mb.ID, "new_id", newID)
		remap[mb.ID] = newID
	}
	return remap, len(remap), nil
}

// importEmails uploads each email's raw message and imports it into
// its (possibly remapped) mailboxes.
func (e *Engine) importEmails(ctx context.Context, emails []jmap.Email, remap map[string]string) (int, error) {
	var imported atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for i := range emails {
		em := emails[i]
		g.Go(func() error {
			data, err := e.store.Read(ctx, storage.BlobPath(em.BlobID))
			if err != nil {
				return fmt.Errorf("reading blob %s for email %s: %w", em.BlobID, em.ID, err)
			}
			blobID, err := e.remote.UploadBlob(ctx, data)
			if err != nil {
				return fmt.Errorf("uploading blob for email %s: %w", em.ID, err)
			}

			mailboxIDs := make(map[string]bool, len(em.MailboxIDs))
			for id := range em.MailboxIDs {
				if newID, ok := remap[id]; ok {
					id = newID
				}
				mailboxIDs[id] = true
			}

			newID, err := e.remote.ImportEmail(ctx, blobID, mailboxIDs, em.Keywords, em.ReceivedAt)
			if err != nil {
				return fmt.Errorf("importing email %s: %w", em.ID, err)
			}
			e.logger.Info("imported email", "old_id", em.ID, "new_id", newID)
			imported.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(imported.Load()), err
}
