// Package source loads the external category dataset. The dataset is an
// ordered JSON array of flat objects; it may live on local disk, in Google
// Cloud Storage (gs://) or in an S3-compatible bucket (s3://).
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
)

// ErrSourceUnavailable marks a dataset that cannot be read or parsed.
// A sync that hits it aborts before any write.
var ErrSourceUnavailable = errors.New("category source unavailable")

// Fetcher returns the raw bytes behind a source URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// Loader resolves a URI to a Fetcher by scheme and parses the result.
type Loader struct {
	fetchers map[string]Fetcher
}

// NewLoader returns a loader that reads local files. Register gs and s3
// fetchers with WithFetcher.
func NewLoader() *Loader {
	return &Loader{
		fetchers: map[string]Fetcher{
			"file": FetcherFunc(readFile),
		},
	}
}

// WithFetcher registers f for URIs of the form scheme://...
func (l *Loader) WithFetcher(scheme string, f Fetcher) *Loader {
	l.fetchers[scheme] = f
	return l
}

// Load fetches and parses the dataset at uri, preserving source order.
func (l *Loader) Load(ctx context.Context, uri string) ([]domain.SourceCategoryRecord, error) {
	log := logger.FromContext(ctx)

	scheme := schemeOf(uri)
	fetcher, ok := l.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("Load: no fetcher for scheme %q: %w", scheme, ErrSourceUnavailable)
	}

	data, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("Load: fetch %s: %v: %w", uri, err, ErrSourceUnavailable)
	}

	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	log.Info().
		Str("uri", uri).
		Int("bytes", len(data)).
		Int("records", len(records)).
		Msg("Loaded category source")

	return records, nil
}

// Parse decodes a JSON array of flat category objects.
func Parse(data []byte) ([]domain.SourceCategoryRecord, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("Parse: empty dataset: %w", ErrSourceUnavailable)
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("Parse: decode: %v: %w", err, ErrSourceUnavailable)
	}
	if rows == nil {
		return nil, fmt.Errorf("Parse: dataset is null: %w", ErrSourceUnavailable)
	}

	records := make([]domain.SourceCategoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, MapRawRecord(row))
	}
	return records, nil
}

func schemeOf(uri string) string {
	if i := strings.Index(uri, "://"); i > 0 {
		return strings.ToLower(uri[:i])
	}
	return "file"
}

func readFile(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return data, nil
}

// splitBucketURI splits scheme://bucket/key into bucket and key.
func splitBucketURI(uri, scheme string) (bucket, key string, err error) {
	prefix := scheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("invalid %s URI: %s", scheme, uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, prefix), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid %s URI (no object path): %s", scheme, uri)
	}
	return parts[0], parts[1], nil
}
