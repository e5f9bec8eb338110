// test/e2e/e2e_test.go

// End-to-end harvest over a stubbed source site: listing discovery,
// landing page details, review feed walk, menu extraction, review
// export and search indexing, all wired through the real runner. Only
// the store is an in-memory fake; every page travels over HTTP.
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-harvester/internal/common/config"
	"resto-harvester/internal/common/database"
	httpclient "resto-harvester/internal/common/http"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/export"
	"resto-harvester/internal/harvest/listings"
	"resto-harvester/internal/harvest/menus"
	"resto-harvester/internal/harvest/reviews"
	"resto-harvester/internal/harvest/source"
	"resto-harvester/internal/models"
	"resto-harvester/internal/notify"
	"resto-harvester/internal/runner"
	"resto-harvester/internal/search"
	"resto-harvester/internal/store"
	"resto-harvester/pkg/registry"
)

const testLocation = "Austin, TX"

// ==========================
// Source Site Fixtures
// ==========================

func listingPage() []byte {
	page := map[string]interface{}{
		"searchPageProps": map[string]interface{}{
			"mainContentComponentsListProps": []interface{}{
				map[string]interface{}{
					"bizId": "biz-1",
					"searchResultBusiness": map[string]interface{}{
						"name":             "Taco Casa",
						"businessUrl":      "/biz/taco-casa-austin?osq=restaurants",
						"rating":           4.5,
						"reviewCount":      float64(3),
						"phone":            "(512) 555-0134",
						"formattedAddress": "1211 S Lamar Blvd",
						"categories": []interface{}{
							map[string]interface{}{"title": "Mexican"},
						},
					},
				},
				map[string]interface{}{
					"type": "pagination",
					"props": map[string]interface{}{
						"totalResults":   float64(1),
						"resultsPerPage": float64(10),
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(page)
	return raw
}

const landingHTML = `<html><body>
<script type="application/json">{
  "ROOT_QUERY": {"business({\"BizEncId\":\"biz-1\"})": {"id": "Business:biz-1"}},
  "$ROOT_QUERY.business({\"BizEncId\":\"biz-1\"})": {"id": "Business:biz-1"},
  "Business:biz-1": {"organizedProperties({\"clientPlatform\":\"WWW\"})": [{"id": "PropertySection:0"}]},
  "PropertySection:0": {"properties": [{"id": "Property:0"}]},
  "Property:0": {"alias": "OutdoorSeating", "isActive": true}
}</script>
<script type="application/json">{
  "bizDetailsPageProps": {
    "ratingDetailsProps": {"numReviews": 3},
    "bizContactInfoProps": {
      "businessMenuProps": {
        "isExternalMenu": false,
        "menuLink": {"href": "/menus/taco-casa-austin"}
      }
    }
  },
  "gaConfig": {"dimensions": {"www": {
    "business_id": ["business_id", "biz-1"],
    "rating": ["rating", "4.5"],
    "biz_closed": ["biz_closed", "False"]
  }}}
}</script>
</body></html>`

func feedPage() []byte {
	page := map[string]interface{}{
		"reviews": []interface{}{
			feedReview("rev-1", 5, "3/7/2024", "Best tacos in town"),
			feedReview("rev-2", 4, "2/1/2024", "Great al pastor"),
			feedReview("rev-3", 2, "12/31/2023", "Long wait"),
		},
		"pagination": map[string]interface{}{
			"startIndex":   0,
			"totalResults": 3,
		},
	}
	raw, _ := json.Marshal(page)
	return raw
}

func feedReview(id string, rating int, date, text string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"rating":        rating,
		"localizedDate": date,
		"comment":       map[string]interface{}{"text": text},
		"business": map[string]interface{}{
			"id":    "biz-1",
			"name":  "Taco Casa",
			"alias": "taco-casa-austin",
		},
	}
}

const menuHTML = `<html><body>
<div class="menu-sections">
  <div class="section-header section-header--no-spacing"><h2>Tacos</h2></div>
  <div class="u-space-b3">
    <div class="menu-item-details"><h4>Al Pastor Taco</h4><p>pork, pineapple</p></div>
    <div class="menu-item-prices"><span class="menu-item-price-amount">$3.50</span></div>
  </div>
</div>
</body></html>`

func newSourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/snippet", func(w http.ResponseWriter, r *http.Request) {
		w.Write(listingPage())
	})
	mux.HandleFunc("/biz/taco-casa-austin/review_feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-requested-by-react") != "true" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write(feedPage())
	})
	mux.HandleFunc("/biz/taco-casa-austin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(landingHTML))
	})
	mux.HandleFunc("/menus/taco-casa-austin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(menuHTML))
	})
	return httptest.NewServer(mux)
}

// ==========================
// In-Memory Infrastructure
// ==========================

// memStore keeps harvest state in memory with the repository's upsert
// semantics: businesses create records, record writes replace them.
type memStore struct {
	mu      sync.Mutex
	records map[string]models.Record
	order   []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]models.Record)}
}

func (s *memStore) UpsertBusinesses(_ context.Context, businesses []models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range businesses {
		if _, exists := s.records[b.BusinessID]; exists {
			continue
		}
		s.records[b.BusinessID] = models.Record{
			BusinessID:       b.BusinessID,
			BusinessName:     b.BusinessName,
			BusinessURL:      b.BusinessURL,
			Location:         b.Location,
			LastReviewsCount: -1,
			ErrorsAt:         "-1",
		}
		s.order = append(s.order, b.BusinessID)
	}
	return nil
}

func (s *memStore) LoadRecords(_ context.Context, location string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, id := range s.order {
		if rec := s.records[id]; rec.Location == location {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memStore) EnsureTagColumns(_ context.Context, _ []string) error { return nil }

func (s *memStore) UpsertRecords(_ context.Context, records []models.Record, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.BusinessID] = rec
	}
	return nil
}

func (s *memStore) ListMenuTargets(_ context.Context, location string) ([]store.MenuTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var targets []store.MenuTarget
	for _, id := range s.order {
		rec := s.records[id]
		if rec.Location != location || rec.MenuItemsScrapedFlag != 0 {
			continue
		}
		if rec.Details.MenuURL != nil {
			targets = append(targets, store.MenuTarget{BusinessID: id, MenuURL: *rec.Details.MenuURL})
		}
	}
	return targets, nil
}

func (s *memStore) UpsertMenus(_ context.Context, updates []store.MenuUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, update := range updates {
		rec := s.records[update.BusinessID]
		rec.Menu = update.Menu
		rec.MenuItemsScrapedFlag = update.ScrapedFlag
		if update.MenuURL == nil {
			rec.Details.MenuURL = nil
		}
		s.records[update.BusinessID] = rec
	}
	return nil
}

func (s *memStore) record(id string) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

type memObjectWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (w *memObjectWriter) Upload(_ context.Context, key string, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.objects == nil {
		w.objects = make(map[string][]byte)
	}
	w.objects[key] = body
	return nil
}

type capturedNotifier struct {
	summaries []notify.RunSummary
}

func (n *capturedNotifier) NotifyRunComplete(_ context.Context, summary notify.RunSummary) error {
	n.summaries = append(n.summaries, summary)
	return nil
}

func newSearchServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if strings.HasSuffix(r.URL.Path, "/_bulk") {
			raw, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(raw))

			docs := strings.Count(string(raw), `"_id"`)
			items := make([]map[string]interface{}, 0, docs)
			for i := 0; i < docs; i++ {
				items = append(items, map[string]interface{}{"index": map[string]interface{}{"status": 201}})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"errors": false, "items": items})
			return
		}
		w.Write([]byte(`{}`))
	}))
	return server, &bodies
}

// ==========================
// End-To-End Harvest
// ==========================

func TestHarvestLocation_EndToEnd(t *testing.T) {
	site := newSourceServer(t)
	defer site.Close()

	esServer, bulkBodies := newSearchServer(t)
	defer esServer.Close()

	redisServer := miniredis.RunT(t)
	redisClient := &database.RedisClient{
		Client: redis.NewClient(&redis.Options{Addr: redisServer.Addr()}),
	}

	log := logger.NewTestLogger(t)

	src := source.NewClient(
		httpclient.NewClient(5*time.Second, 100, 10, "harvester-e2e"),
		nil, log,
		source.Options{BaseURL: site.URL, ReviewPageSize: 20},
	)

	feedSchema, err := registry.Default().Compile("review-feed")
	require.NoError(t, err)

	esClient, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: esServer.URL})
	require.NoError(t, err)

	st := newMemStore()
	writer := &memObjectWriter{}
	sink := export.NewExporter(
		writer,
		export.NewRedisDeduper(redisClient, "exported_reviews"),
		log,
		export.Options{KeyTemplate: "{city}/{chunk}.jsonl", ChunkSize: 1000},
	)
	notifier := &capturedNotifier{}

	r := runner.New(
		listings.NewEnumerator(src, log, listings.Options{}),
		src,
		reviews.NewHarvester(src, feedSchema, log, reviews.Options{PageSize: 20, Concurrency: 2}),
		menus.NewHarvester(src, log, site.URL),
		st, sink,
		search.NewIndexer(esClient, log, "reviews"),
		notifier,
		log,
		runner.Options{Concurrency: 2, HarvestMenus: true},
	)

	require.NoError(t, r.HarvestLocation(context.Background(), testLocation))

	// Discovery and details.
	rec := st.record("biz-1")
	assert.Equal(t, "Taco Casa", rec.BusinessName)
	assert.Equal(t, "/biz/taco-casa-austin", rec.BusinessURL)
	require.NotNil(t, rec.Details.NumReviews)
	assert.Equal(t, 3, *rec.Details.NumReviews)
	assert.Equal(t, 1, rec.Tags["amenity_outdoor_seating"])

	// Review state resolved in one pass.
	assert.Equal(t, 3, rec.LastReviewsCount)
	assert.Equal(t, "-1", rec.ErrorsAt)

	// Menu extracted through the hosted menu link.
	assert.Equal(t, 1, rec.MenuItemsScrapedFlag)
	require.Contains(t, rec.Menu, "menu")
	require.Contains(t, rec.Menu["menu"], "tacos")
	assert.Equal(t, "al pastor taco", rec.Menu["menu"]["tacos"][0].Name)
	assert.Equal(t, "$3.50", rec.Menu["menu"]["tacos"][0].Price)

	// Reviews exported as one JSONL chunk keyed by city.
	require.Len(t, writer.objects, 1)
	for key, body := range writer.objects {
		assert.True(t, strings.HasPrefix(key, testLocation+"/0"), "unexpected object key %q", key)
		lines := strings.Split(strings.TrimSpace(string(body)), "\n")
		assert.Len(t, lines, 3)
		assert.Contains(t, lines[0], `"review_id":"rev-1"`)
		assert.Contains(t, lines[0], `"sentiment":1`)
	}

	// Reviews mirrored into search.
	require.Len(t, *bulkBodies, 1)
	assert.Contains(t, (*bulkBodies)[0], `{"index":{"_id":"rev-1"}}`)

	// Run summary.
	require.Len(t, notifier.summaries, 1)
	summary := notifier.summaries[0]
	assert.Equal(t, 1, summary.Businesses)
	assert.Equal(t, 3, summary.ReviewsHarvested)
	assert.Equal(t, 0, summary.RangesOutstanding)
	assert.Equal(t, 1, summary.MenusHarvested)
	assert.Equal(t, 0, summary.Failures)
}

// A second pass over the same state fetches nothing new and exports
// nothing: the review state is resolved and the dedup set already
// carries every review id.
func TestHarvestLocation_SecondPassIsIdempotent(t *testing.T) {
	site := newSourceServer(t)
	defer site.Close()

	redisServer := miniredis.RunT(t)
	redisClient := &database.RedisClient{
		Client: redis.NewClient(&redis.Options{Addr: redisServer.Addr()}),
	}

	log := logger.NewTestLogger(t)
	src := source.NewClient(
		httpclient.NewClient(5*time.Second, 100, 10, "harvester-e2e"),
		nil, log,
		source.Options{BaseURL: site.URL, ReviewPageSize: 20},
	)

	st := newMemStore()
	writer := &memObjectWriter{}
	sink := export.NewExporter(
		writer,
		export.NewRedisDeduper(redisClient, "exported_reviews"),
		log,
		export.Options{KeyTemplate: "{city}/{chunk}.jsonl", ChunkSize: 1000},
	)

	newRunner := func() *runner.Runner {
		return runner.New(
			listings.NewEnumerator(src, log, listings.Options{}),
			src,
			reviews.NewHarvester(src, nil, log, reviews.Options{PageSize: 20}),
			nil,
			st, sink, nil, nil,
			log,
			runner.Options{},
		)
	}

	require.NoError(t, newRunner().HarvestLocation(context.Background(), testLocation))
	require.Len(t, writer.objects, 1)

	require.NoError(t, newRunner().HarvestLocation(context.Background(), testLocation))

	rec := st.record("biz-1")
	assert.Equal(t, 3, rec.LastReviewsCount)
	assert.Equal(t, "-1", rec.ErrorsAt)
	assert.Len(t, writer.objects, 1, "already exported reviews are not re-uploaded")
}
