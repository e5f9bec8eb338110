// internal/export/exporter_test.go
package export

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-harvester/internal/common/database"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/models"
)

type fakeObjectWriter struct {
	uploads map[string][]byte
	keys    []string
}

func newFakeObjectWriter() *fakeObjectWriter {
	return &fakeObjectWriter{uploads: make(map[string][]byte)}
}

func (f *fakeObjectWriter) Upload(_ context.Context, key string, body []byte) error {
	f.uploads[key] = body
	f.keys = append(f.keys, key)
	return nil
}

func testReview(id string) models.Review {
	return models.Review{
		ReviewID:         id,
		Text:             "good tacos",
		Date:             "2024-06-15",
		Rating:           5,
		BusinessID:       "biz-1",
		BusinessLocation: "Austin, TX",
		Sentiment:        1,
	}
}

func decodeGzipLines(t *testing.T, body []byte) []models.Review {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer gz.Close()

	var reviews []models.Review
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		var review models.Review
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &review))
		reviews = append(reviews, review)
	}
	require.NoError(t, scanner.Err())
	return reviews
}

// ==========================
// Exporter Tests
// ==========================

func TestExporter_ChunksAndGzips(t *testing.T) {
	writer := newFakeObjectWriter()
	e := NewExporter(writer, nil, logger.NewTestLogger(t), Options{
		KeyTemplate: "{city}/{chunk}/{time}.jsonl.gz",
		ChunkSize:   2,
	})

	ctx := context.Background()
	require.NoError(t, e.Add(ctx, testReview("rev-1")))
	require.NoError(t, e.Add(ctx, testReview("rev-2")))
	require.NoError(t, e.Add(ctx, testReview("rev-3")))
	require.NoError(t, e.Close(ctx))

	require.Len(t, writer.keys, 2)

	// The first chunk starts at offset 0, the second at the number of
	// reviews already shipped.
	assert.True(t, strings.HasPrefix(writer.keys[0], "Austin, TX/0/"))
	assert.True(t, strings.HasPrefix(writer.keys[1], "Austin, TX/2/"))

	first := decodeGzipLines(t, writer.uploads[writer.keys[0]])
	require.Len(t, first, 2)
	assert.Equal(t, "rev-1", first[0].ReviewID)
	assert.Equal(t, "rev-2", first[1].ReviewID)

	second := decodeGzipLines(t, writer.uploads[writer.keys[1]])
	require.Len(t, second, 1)
	assert.Equal(t, "rev-3", second[0].ReviewID)
}

func TestExporter_PlainTemplateSkipsGzip(t *testing.T) {
	writer := newFakeObjectWriter()
	e := NewExporter(writer, nil, logger.NewTestLogger(t), Options{
		KeyTemplate: "{city}/{chunk}.jsonl",
		ChunkSize:   10,
	})

	ctx := context.Background()
	require.NoError(t, e.Add(ctx, testReview("rev-1")))
	require.NoError(t, e.Close(ctx))

	require.Len(t, writer.keys, 1)
	assert.Equal(t, "Austin, TX/0.jsonl", writer.keys[0])

	var review models.Review
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(writer.uploads[writer.keys[0]]), &review))
	assert.Equal(t, "rev-1", review.ReviewID)
}

func TestExporter_EmptyCloseUploadsNothing(t *testing.T) {
	writer := newFakeObjectWriter()
	e := NewExporter(writer, nil, logger.NewTestLogger(t), Options{})

	require.NoError(t, e.Close(context.Background()))
	assert.Empty(t, writer.keys)
}

// ==========================
// Dedup Tests
// ==========================

func newTestDeduper(t *testing.T) *RedisDeduper {
	t.Helper()

	server := miniredis.RunT(t)
	client := &database.RedisClient{
		Client: redis.NewClient(&redis.Options{Addr: server.Addr()}),
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisDeduper(client, "exported_reviews")
}

func TestRedisDeduper_MarksAndResees(t *testing.T) {
	d := newTestDeduper(t)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "Austin, TX", "rev-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "Austin, TX", []string{"rev-1", "rev-2"}))

	seen, err = d.Seen(ctx, "Austin, TX", "rev-1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Cities keep separate sets.
	seen, err = d.Seen(ctx, "Dallas, TX", "rev-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestExporter_DropsAlreadyExportedReviews(t *testing.T) {
	writer := newFakeObjectWriter()
	d := newTestDeduper(t)
	e := NewExporter(writer, d, logger.NewTestLogger(t), Options{
		KeyTemplate: "{city}/{chunk}.jsonl",
		ChunkSize:   10,
	})

	ctx := context.Background()
	require.NoError(t, e.Add(ctx, testReview("rev-1")))
	require.NoError(t, e.Close(ctx))

	require.NoError(t, e.Add(ctx, testReview("rev-1")))
	require.NoError(t, e.Add(ctx, testReview("rev-2")))
	require.NoError(t, e.Close(ctx))

	require.Len(t, writer.keys, 2)
	assert.Equal(t, "Austin, TX/0.jsonl", writer.keys[0])
	assert.Equal(t, "Austin, TX/1.jsonl", writer.keys[1])

	lines := bytes.Split(bytes.TrimSpace(writer.uploads[writer.keys[1]]), []byte("\n"))
	require.Len(t, lines, 1)

	var review models.Review
	require.NoError(t, json.Unmarshal(lines[0], &review))
	assert.Equal(t, "rev-2", review.ReviewID)
}
