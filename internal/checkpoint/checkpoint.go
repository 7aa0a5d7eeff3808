// Package checkpoint persists sync cursors in the object store so an
// interrupted backup can resume from its last committed page.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mailbak/mailbak/internal/storage"
)

// Well-known checkpoint names.
const (
	Mailboxes = "mailboxes"
	Emails    = "email"
)

// Offset is the cursor for collections with no stable chronological
// field. Position counts items already persisted; Items records their
// identifiers. Invariant: Position == len(Items), and every id in
// Items has been durably written.
type Offset struct {
	Position int      `json:"position"`
	Items    []string `json:"items"`
}

// Advance moves the cursor past a processed page.
func (o *Offset) Advance(ids []string) {
	o.Position += len(ids)
	o.Items = append(o.Items, ids...)
}

// Watermark is the cursor for receipt-time ordered collections. Every
// item received at or before LastProcessedDate has been durably
// written.
type Watermark struct {
	LastProcessedDate time.Time `json:"lastProcessedDate"`
}

// Advance moves the watermark forward, never backward.
func (w *Watermark) Advance(received time.Time) {
	if received.After(w.LastProcessedDate) {
		w.LastProcessedDate = received
	}
}

// LoadOffset reads the named offset checkpoint, returning the zero
// cursor when none has been written yet.
func LoadOffset(ctx context.Context, store storage.Store, name string) (Offset, error) {
	var cp Offset
	found, err := load(ctx, store, name, &cp)
	if err != nil {
		return Offset{}, err
	}
	if !found {
		return Offset{Items: []string{}}, nil
	}
	return cp, nil
}

// LoadWatermark reads the named watermark checkpoint. When absent the
// watermark is the Unix epoch; email predates this system, but not by
// that much. A found watermark is stepped back one second so items
// sharing the boundary timestamp are never skipped on resume, at the
// cost of re-writing at most one page of already-stored items.
func LoadWatermark(ctx context.Context, store storage.Store, name string) (Watermark, error) {
	var cp Watermark
	found, err := load(ctx, store, name, &cp)
	if err != nil {
		return Watermark{}, err
	}
	if !found {
		return Watermark{LastProcessedDate: time.Unix(0, 0).UTC()}, nil
	}
	cp.LastProcessedDate = cp.LastProcessedDate.Add(-time.Second)
	return cp, nil
}

// Save overwrites the named checkpoint. Pretty-printed so a stored
// backup can be inspected by hand.
func Save(ctx context.Context, store storage.Store, name string, cp any) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing checkpoint %s: %w", name, err)
	}
	if err := store.Write(ctx, storage.CheckpointPath(name), data); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", name, err)
	}
	return nil
}

func load(ctx context.Context, store storage.Store, name string, into any) (bool, error) {
	path := storage.CheckpointPath(name)
	exists, err := store.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("checking checkpoint %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}

	data, err := store.Read(ctx, path)
	if err != nil {
		return false, fmt.Errorf("reading checkpoint %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decoding checkpoint %s: %w", name, err)
	}
	return true, nil
}
