// internal/export/exporter.go

// Package export ships harvested reviews to object storage as chunked
// gzipped JSON-lines files. A Redis-backed deduper remembers exported
// review ids across runs so re-harvested ranges do not produce
// duplicate rows downstream.
package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/models"
)

// ObjectWriter uploads one finished chunk.
type ObjectWriter interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Deduper tracks review ids that were already exported. Nil-safe: an
// Exporter without a deduper exports everything.
type Deduper interface {
	Seen(ctx context.Context, city, reviewID string) (bool, error)
	Mark(ctx context.Context, city string, reviewIDs []string) error
}

// Options tune one Exporter.
type Options struct {
	// KeyTemplate names uploaded objects; {city}, {chunk} and {time}
	// are substituted per chunk. A template ending in .gz enables
	// gzip.
	KeyTemplate string
	// ChunkSize is the number of reviews per uploaded object.
	ChunkSize int
}

// Exporter buffers reviews and uploads them chunk by chunk. Safe for
// concurrent Add calls.
type Exporter struct {
	writer ObjectWriter
	dedup  Deduper
	logger logger.Logger

	keyTemplate string
	chunkSize   int
	useGzip     bool

	mu          sync.Mutex
	buffer      []models.Review
	chunkNumber int
	city        string
}

func NewExporter(writer ObjectWriter, dedup Deduper, log logger.Logger, opts Options) *Exporter {
	if opts.KeyTemplate == "" {
		opts.KeyTemplate = "{city}/{chunk}/{time}.jsonl.gz"
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	return &Exporter{
		writer:      writer,
		dedup:       dedup,
		logger:      log,
		keyTemplate: opts.KeyTemplate,
		chunkSize:   opts.ChunkSize,
		useGzip:     strings.HasSuffix(opts.KeyTemplate, ".gz"),
	}
}

// Add queues one review for export, flushing a full chunk. Reviews the
// deduper has already seen are dropped.
func (e *Exporter) Add(ctx context.Context, review models.Review) error {
	if e.dedup != nil {
		seen, err := e.dedup.Seen(ctx, review.BusinessLocation, review.ReviewID)
		if err != nil {
			return errors.NewExportDedupFailedError(err)
		}
		if seen {
			return nil
		}
	}

	e.mu.Lock()
	e.buffer = append(e.buffer, review)
	e.city = review.BusinessLocation
	full := len(e.buffer) >= e.chunkSize
	e.mu.Unlock()

	if full {
		return e.Flush(ctx)
	}
	return nil
}

// Flush uploads whatever is buffered. A flush with an empty buffer is
// a no-op.
func (e *Exporter) Flush(ctx context.Context) error {
	e.mu.Lock()
	if len(e.buffer) == 0 {
		e.mu.Unlock()
		return nil
	}
	chunk := e.buffer
	e.buffer = nil
	key := e.objectKey(e.city, e.chunkNumber)
	e.chunkNumber += len(chunk)
	e.mu.Unlock()

	body, err := e.render(chunk)
	if err != nil {
		return errors.NewExportUploadFailedError(key, err)
	}

	if err := e.writer.Upload(ctx, key, body); err != nil {
		return errors.NewExportUploadFailedError(key, err)
	}

	if e.dedup != nil {
		ids := make([]string, 0, len(chunk))
		for _, review := range chunk {
			ids = append(ids, review.ReviewID)
		}
		if err := e.dedup.Mark(ctx, chunk[0].BusinessLocation, ids); err != nil {
			return errors.NewExportDedupFailedError(err)
		}
	}

	e.logger.Info("Exported review chunk", map[string]interface{}{
		"object": key,
		"count":  len(chunk),
	})
	return nil
}

// Close flushes the trailing partial chunk.
func (e *Exporter) Close(ctx context.Context) error {
	return e.Flush(ctx)
}

func (e *Exporter) render(chunk []models.Review) ([]byte, error) {
	var buf bytes.Buffer

	if e.useGzip {
		gz := gzip.NewWriter(&buf)
		enc := json.NewEncoder(gz)
		for _, review := range chunk {
			if err := enc.Encode(review); err != nil {
				return nil, err
			}
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	enc := json.NewEncoder(&buf)
	for _, review := range chunk {
		if err := enc.Encode(review); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (e *Exporter) objectKey(city string, chunk int) string {
	timestamp := strings.ReplaceAll(time.Now().UTC().Format("2006-01-02T15:04:05"), ":", "-")

	key := e.keyTemplate
	key = strings.ReplaceAll(key, "{city}", city)
	key = strings.ReplaceAll(key, "{chunk}", strconv.Itoa(chunk))
	key = strings.ReplaceAll(key, "{time}", timestamp)
	return key
}
