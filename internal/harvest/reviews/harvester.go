// internal/harvest/reviews/harvester.go

// Package reviews drives the resumable review harvest for one business
// at a time: it plans the outstanding index ranges from the persisted
// state, walks each range page by page through a Transport, and encodes
// whatever did not resolve back into the persisted errors_at form.
package reviews

import (
	"context"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/common/metrics"
	"resto-harvester/internal/harvest/gaps"
	"resto-harvester/internal/models"
)

// Transport fetches one raw review-feed page. start is the absolute
// feed offset of the first requested item and is always a multiple of
// the configured page size.
type Transport interface {
	FetchFeedPage(ctx context.Context, businessURL string, start int) ([]byte, error)
}

// Options tune one Harvester instance.
type Options struct {
	// PageSize is the number of items the feed serves per request.
	PageSize int
	// Concurrency bounds how many ranges are walked in parallel for a
	// single business. Pages within a range are always sequential.
	Concurrency int
}

// Result is the outcome of harvesting one business.
type Result struct {
	// Reviews holds every item that fell inside a target range, in
	// range order.
	Reviews []models.Review
	// ErrorsAt is the re-encoded outstanding state: "-1" when every
	// range resolved.
	ErrorsAt string
	// LastReviewsCount is the count to persist for the next run.
	LastReviewsCount int
}

// Harvester walks review feeds range by range.
type Harvester struct {
	transport Transport
	schema    *gojsonschema.Schema
	logger    logger.Logger

	pageSize    int
	concurrency int
}

// NewHarvester builds a Harvester. schema may be nil to skip payload
// validation.
func NewHarvester(transport Transport, schema *gojsonschema.Schema, log logger.Logger, opts Options) *Harvester {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Harvester{
		transport:   transport,
		schema:      schema,
		logger:      log,
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
	}
}

// Harvest fetches the reviews still missing for rec given the review
// count observed on this run. The persisted record is not mutated; the
// caller folds the Result back into it before upserting.
//
// A page failure abandons its range for this run. When the failure
// happens past the range's first index the fetched prefix is kept and
// the persisted range start advances to the failing offset (capped at
// the range end), so the next run resumes where this one stopped
// instead of re-fetching.
func (h *Harvester) Harvest(ctx context.Context, rec *models.Record, currentCount int) (*Result, error) {
	ranges, err := gaps.DecodeRanges(rec.ErrorsAt)
	if err != nil {
		return nil, errors.NewStateDecodeFailedError(rec.BusinessID, err)
	}

	state := gaps.NewState(rec.LastReviewsCount, currentCount, ranges)
	targets := state.Plan()

	h.logger.Info("Planned review harvest", map[string]interface{}{
		"businessId":   rec.BusinessID,
		"lastCount":    rec.LastReviewsCount,
		"currentCount": currentCount,
		"ranges":       len(targets),
	})

	perRange := make([][]models.Review, len(targets))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, h.concurrency)
	)
	for i, target := range targets {
		if target.Len() == 0 {
			// Nothing to fetch; Outstanding drops empty ranges, so no
			// state write is needed here.
			continue
		}

		wg.Add(1)
		go func(i int, target gaps.Range) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			perRange[i] = h.harvestRange(ctx, rec, state, &mu, i, target)
		}(i, target)
	}
	wg.Wait()

	result := &Result{
		ErrorsAt:         gaps.EncodeRanges(state.Outstanding()),
		LastReviewsCount: currentCount,
	}
	for _, reviews := range perRange {
		result.Reviews = append(result.Reviews, reviews...)
	}

	metrics.ReviewsHarvested.WithLabelValues(rec.Location).Add(float64(len(result.Reviews)))
	metrics.RangesOutstanding.WithLabelValues(rec.Location).Set(float64(len(state.Outstanding())))

	return result, nil
}

// harvestRange walks one target range sequentially, page by page, and
// returns the items that fell inside it. The range is marked resolved
// once a fetched page covers the target's last index; on any failure
// the range is left outstanding with its start advanced past the pages
// already fetched.
func (h *Harvester) harvestRange(ctx context.Context, rec *models.Record, state *gaps.State, mu *sync.Mutex, i int, target gaps.Range) []models.Review {
	var collected []models.Review

	start := gaps.PageStart(target.Start, h.pageSize)
	for {
		raw, err := h.transport.FetchFeedPage(ctx, rec.BusinessURL, start)
		if err != nil {
			h.failRange(rec, state, mu, i, target, start, err)
			return collected
		}

		page, err := ParseFeed(raw, h.schema, rec.Location)
		if err != nil {
			h.failRange(rec, state, mu, i, target, start, err)
			return collected
		}
		if len(page) == 0 {
			h.failRange(rec, state, mu, i, target, start,
				errors.NewFeedInvalidError("empty page"))
			return collected
		}

		collected = append(collected, gaps.ExtractWindow(page, start, target)...)

		if start+len(page)-1 >= target.End {
			mu.Lock()
			state.MarkResolved(i)
			mu.Unlock()
			return collected
		}
		start += h.pageSize
	}
}

// failRange records a page failure: when the failing offset lies past
// the range start the start moves forward so resumed runs skip the
// pages this run already fetched. The range stays outstanding unless
// the advance emptied it, which means the feed ended inside the range.
func (h *Harvester) failRange(rec *models.Record, state *gaps.State, mu *sync.Mutex, i int, target gaps.Range, failedStart int, err error) {
	if failedStart > target.Start {
		mu.Lock()
		state.AdvanceStart(i, failedStart)
		mu.Unlock()
	}

	h.logger.Warn("Review page fetch failed", map[string]interface{}{
		"businessId": rec.BusinessID,
		"rangeStart": target.Start,
		"rangeEnd":   target.End,
		"pageStart":  failedStart,
		"error":      err.Error(),
	})
}
