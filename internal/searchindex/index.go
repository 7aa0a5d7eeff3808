package searchindex

import (
	"context"
	"fmt"
	"runtime"

	"github.com/blevesearch/bleve/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mailbak/mailbak/internal/jmap"
)

// Result is one search hit, relevance-ordered by the engine. Only the
// projected fields are populated.
type Result struct {
	ID      string
	BlobID  string
	Subject string
}

// Index is the embedded full-text index. The writer is single-owner:
// one Index per process run, AddPage serializes its commit.
type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it with the process-wide
// schema when absent.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening search index at %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}

// AddPage indexes one page of emails with their raw payloads and
// commits once. payloads is parallel to emails; a nil entry means the
// blob download failed and the email is indexed without a body.
// Documents are built concurrently (CPU-bound parsing), the commit is
// a single batch.
func (x *Index) AddPage(ctx context.Context, emails []jmap.Email, payloads [][]byte) error {
	if len(emails) != len(payloads) {
		return fmt.Errorf("got %d payloads for %d emails", len(payloads), len(emails))
	}
	if len(emails) == 0 {
		return nil
	}

	docs := make([]map[string]any, len(emails))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range emails {
		g.Go(func() error {
			docs[i] = buildDocument(emails[i], payloads[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	batch := x.idx.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(emails[i].ID, doc); err != nil {
			return fmt.Errorf("adding email %s to batch: %w", emails[i].ID, err)
		}
	}
	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("committing index batch: %w", err)
	}
	return nil
}

// Search runs a free-text query over the subject and body fields and
// returns up to limit hits, best first. fields selects which stored
// fields are projected into the results; unknown names are ignored.
// An unmatched query returns an empty slice, never an error.
func (x *Index) Search(queryText string, limit int, fields []string) ([]Result, error) {
	subject := bleve.NewMatchQuery(queryText)
	subject.SetField(FieldSubject)
	body := bleve.NewMatchQuery(queryText)
	body.SetField(FieldBody)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(subject, body), limit, 0, false)
	req.Fields = projection(fields)

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", queryText, err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{
			ID:      fieldString(hit.Fields, FieldID),
			BlobID:  fieldString(hit.Fields, FieldBlobID),
			Subject: fieldString(hit.Fields, FieldSubject),
		})
	}
	return results, nil
}

// projection filters the requested fields down to the stored ones,
// defaulting to all of them.
func projection(fields []string) []string {
	if len(fields) == 0 {
		return []string{FieldID, FieldBlobID, FieldSubject}
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if storedFields[f] {
			out = append(out, f)
		}
	}
	return out
}

func fieldString(fields map[string]any, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}
