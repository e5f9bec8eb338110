// internal/runner/runner.go

// Package runner drives one full harvest pass for a location:
// listings discovery, per-business landing page details, resumable
// review harvesting, menu extraction, and the downstream export,
// index and notification fan-out. Each stage degrades independently;
// a business that fails one stage keeps its persisted state for the
// next run.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/common/metrics"
	"resto-harvester/internal/harvest/gaps"
	"resto-harvester/internal/harvest/graphdoc"
	"resto-harvester/internal/harvest/menus"
	"resto-harvester/internal/harvest/reviews"
	"resto-harvester/internal/models"
	"resto-harvester/internal/notify"
	"resto-harvester/internal/store"
)

// ListingEnumerator discovers the businesses of a location.
type ListingEnumerator interface {
	Enumerate(ctx context.Context, location string) ([]models.Business, error)
}

// LandingFetcher fetches one business landing page as HTML.
type LandingFetcher interface {
	FetchLandingPage(ctx context.Context, businessURL string) (string, error)
}

// ReviewHarvester walks the outstanding review ranges of one business.
type ReviewHarvester interface {
	Harvest(ctx context.Context, rec *models.Record, currentCount int) (*reviews.Result, error)
}

// MenuHarvester extracts one business's hosted menu.
type MenuHarvester interface {
	Harvest(ctx context.Context, businessID, menuURL string) (*menus.Result, error)
}

// Store is the persistence surface the runner needs.
type Store interface {
	UpsertBusinesses(ctx context.Context, businesses []models.Business) error
	LoadRecords(ctx context.Context, location string) ([]models.Record, error)
	EnsureTagColumns(ctx context.Context, tags []string) error
	UpsertRecords(ctx context.Context, records []models.Record, tagUnion []string) error
	ListMenuTargets(ctx context.Context, location string) ([]store.MenuTarget, error)
	UpsertMenus(ctx context.Context, updates []store.MenuUpdate) error
}

// ReviewSink receives finalized reviews; typically the bucket exporter.
type ReviewSink interface {
	Add(ctx context.Context, review models.Review) error
	Close(ctx context.Context) error
}

// ReviewIndexer mirrors finalized reviews into search.
type ReviewIndexer interface {
	IndexReviews(ctx context.Context, reviews []models.Review) error
}

// Notifier reports the run outcome.
type Notifier interface {
	NotifyRunComplete(ctx context.Context, summary notify.RunSummary) error
}

// Options tune one Runner.
type Options struct {
	// Concurrency bounds how many businesses are processed at once.
	Concurrency int
	// HarvestMenus toggles the menu pass.
	HarvestMenus bool
}

// Runner executes location passes.
type Runner struct {
	listings ListingEnumerator
	landing  LandingFetcher
	reviews  ReviewHarvester
	menus    MenuHarvester
	store    Store
	sink     ReviewSink
	indexer  ReviewIndexer
	notifier Notifier

	logger  logger.Logger
	handler *errors.ErrorHandler
	opts    Options
}

func New(
	listings ListingEnumerator,
	landing LandingFetcher,
	reviewHarvester ReviewHarvester,
	menuHarvester MenuHarvester,
	st Store,
	sink ReviewSink,
	indexer ReviewIndexer,
	notifier Notifier,
	log logger.Logger,
	opts Options,
) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{
		listings: listings,
		landing:  landing,
		reviews:  reviewHarvester,
		menus:    menuHarvester,
		store:    st,
		sink:     sink,
		indexer:  indexer,
		notifier: notifier,
		logger:   log,
		handler:  errors.NewErrorHandler(log),
		opts:     opts,
	}
}

// HarvestLocation runs the full pass for one location and sends the
// run summary. The returned error ends the pass early only for
// failures that make the rest of the run meaningless (listing walk or
// state load); everything after that is per-business best effort.
func (r *Runner) HarvestLocation(ctx context.Context, location string) error {
	started := time.Now()
	runID := uuid.NewString()
	summary := notify.RunSummary{Location: location}

	r.logger.Info("Location pass starting", map[string]interface{}{
		"runId":    runID,
		"location": location,
	})

	if r.listings != nil {
		businesses, err := r.listings.Enumerate(ctx, location)
		if err != nil {
			return err
		}
		if err := r.store.UpsertBusinesses(ctx, businesses); err != nil {
			return err
		}
	}

	records, err := r.store.LoadRecords(ctx, location)
	if err != nil {
		return err
	}
	summary.Businesses = len(records)

	results := r.harvestBusinesses(ctx, records)
	summary.ReviewsHarvested = results.reviewCount
	summary.RangesOutstanding = results.outstanding
	summary.Failures = results.failures

	if err := r.persistRecords(ctx, results.records); err != nil {
		return err
	}

	if r.opts.HarvestMenus && r.menus != nil {
		harvested, failed := r.harvestMenus(ctx, location)
		summary.MenusHarvested = harvested
		summary.Failures += failed
	}

	if r.sink != nil {
		if err := r.sink.Close(ctx); err != nil {
			r.handler.HandleTaskError("export-flush", 1, err)
			summary.Failures++
		}
	}

	summary.Duration = time.Since(started)
	if r.notifier != nil {
		if err := r.notifier.NotifyRunComplete(ctx, summary); err != nil {
			r.logger.Warn("Run notification failed", map[string]interface{}{
				"location": location,
				"error":    err.Error(),
			})
		}
	}

	r.logger.Info("Location pass finished", map[string]interface{}{
		"runId":             runID,
		"location":          location,
		"businesses":        summary.Businesses,
		"reviewsHarvested":  summary.ReviewsHarvested,
		"rangesOutstanding": summary.RangesOutstanding,
		"menusHarvested":    summary.MenusHarvested,
		"failures":          summary.Failures,
	})
	return nil
}

type passResults struct {
	records     []models.Record
	reviewCount int
	outstanding int
	failures    int
}

// harvestBusinesses runs the details + reviews stages over every
// record with bounded concurrency.
func (r *Runner) harvestBusinesses(ctx context.Context, records []models.Record) *passResults {
	results := &passResults{records: records}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.opts.Concurrency)
	)
	for i := range records {
		wg.Add(1)
		go func(rec *models.Record) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			harvested, outstanding, failed := r.harvestBusiness(ctx, rec)

			mu.Lock()
			results.reviewCount += harvested
			results.outstanding += outstanding
			if failed {
				results.failures++
			}
			mu.Unlock()
		}(&records[i])
	}
	wg.Wait()
	return results
}

// harvestBusiness runs details extraction and the review harvest for
// one record, mutating it in place. On failure the record's persisted
// review state is left verbatim so the next run retries the same
// ranges.
func (r *Runner) harvestBusiness(ctx context.Context, rec *models.Record) (harvested, outstanding int, failed bool) {
	taskStarted := time.Now()

	page, err := r.fetchLandingPage(ctx, rec.BusinessURL)
	if err != nil {
		metrics.HarvestTasksFailed.WithLabelValues("business", string(errorCode(err))).Inc()
		return 0, 0, true
	}

	rec.Details = models.MergeDetails(rec.Details, page.Details())
	rec.Tags = pageTags(page)

	currentCount := rec.LastReviewsCount
	if count := page.NumReviews(); count != nil {
		currentCount = *count
	}
	if currentCount < 0 {
		// Review count unknown and never harvested; nothing to plan.
		return 0, 0, false
	}

	result, err := r.reviews.Harvest(ctx, rec, currentCount)
	if err != nil {
		r.handler.HandleTaskError("harvest-reviews", 1, err)
		metrics.HarvestTasksFailed.WithLabelValues("reviews", string(errorCode(err))).Inc()
		return 0, 0, true
	}

	rec.ErrorsAt = result.ErrorsAt
	rec.LastReviewsCount = result.LastReviewsCount

	r.dispatchReviews(ctx, result.Reviews)

	ranges, _ := decodeOutstanding(result.ErrorsAt)
	metrics.HarvestTasksCompleted.WithLabelValues("business").Inc()
	metrics.HarvestTaskDuration.WithLabelValues("business").Observe(time.Since(taskStarted).Seconds())
	return len(result.Reviews), ranges, false
}

// fetchLandingPage fetches and parses one landing page, retrying
// transient fetch failures per the shared error taxonomy.
func (r *Runner) fetchLandingPage(ctx context.Context, businessURL string) (*graphdoc.Page, error) {
	var html string
	var err error
	for attempt := 1; ; attempt++ {
		html, err = r.landing.FetchLandingPage(ctx, businessURL)
		if err == nil {
			break
		}
		if !r.handler.HandleTaskError("fetch-landing", attempt, err) {
			return nil, err
		}
	}
	return graphdoc.ParseLandingPage(html)
}

func (r *Runner) dispatchReviews(ctx context.Context, batch []models.Review) {
	if r.sink != nil {
		for _, review := range batch {
			if err := r.sink.Add(ctx, review); err != nil {
				r.handler.HandleTaskError("export-review", 1, err)
				break
			}
		}
	}
	if r.indexer != nil && len(batch) > 0 {
		if err := r.indexer.IndexReviews(ctx, batch); err != nil {
			r.handler.HandleTaskError("index-reviews", 1, err)
		}
	}
}

// persistRecords ensures every tag column seen this run exists, then
// upserts all records with the full tag union so unobserved tags write
// zero.
func (r *Runner) persistRecords(ctx context.Context, records []models.Record) error {
	tagSet := make(map[string]bool)
	for _, rec := range records {
		for tag := range rec.Tags {
			tagSet[tag] = true
		}
	}
	tagUnion := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tagUnion = append(tagUnion, tag)
	}

	if err := r.store.EnsureTagColumns(ctx, tagUnion); err != nil {
		return err
	}
	return r.store.UpsertRecords(ctx, records, tagUnion)
}

func (r *Runner) harvestMenus(ctx context.Context, location string) (harvested, failed int) {
	targets, err := r.store.ListMenuTargets(ctx, location)
	if err != nil {
		r.handler.HandleTaskError("list-menu-targets", 1, err)
		return 0, 1
	}

	var updates []store.MenuUpdate
	for _, target := range targets {
		result, err := r.menus.Harvest(ctx, target.BusinessID, target.MenuURL)
		if err != nil {
			r.handler.HandleTaskError("harvest-menu", 1, err)
			failed++
			continue
		}

		update := store.MenuUpdate{
			BusinessID:  target.BusinessID,
			ScrapedFlag: result.ScrapedFlag,
			Menu:        result.Menu,
		}
		if result.MenuURLValid {
			menuURL := target.MenuURL
			update.MenuURL = &menuURL
			harvested++
		}
		updates = append(updates, update)
	}

	if len(updates) > 0 {
		if err := r.store.UpsertMenus(ctx, updates); err != nil {
			r.handler.HandleTaskError("persist-menus", 1, err)
			failed++
		}
	}
	return harvested, failed
}

func pageTags(page *graphdoc.Page) map[string]int {
	tags := make(map[string]int)
	for tag, value := range page.ServiceUpdates() {
		tags[tag] = value
	}
	for tag, value := range page.Amenities() {
		tags[tag] = value
	}
	return tags
}

func decodeOutstanding(errorsAt string) (int, error) {
	ranges, err := gaps.DecodeRanges(errorsAt)
	if err != nil {
		return 0, err
	}
	return len(ranges), nil
}

func errorCode(err error) errors.ErrorCode {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}
