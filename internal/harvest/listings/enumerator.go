// internal/harvest/listings/enumerator.go

// Package listings discovers the businesses to harvest for a location
// by walking the site's paginated search feed. The search endpoint
// serves JSON; ads are dropped, stale closure suffixes are stripped
// from names, and pagination stops at the source's listing ceiling.
package listings

import (
	"context"
	"encoding/json"
	"strings"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/models"
)

// Transport fetches one raw listing search page.
type Transport interface {
	FetchListingPage(ctx context.Context, location string, start int) ([]byte, error)
}

// Options tune one Enumerator.
type Options struct {
	// PageSize is the assumed results-per-page until the first parsed
	// page reveals the real value.
	PageSize int
	// MaxListings is the offset past which the source usually stops
	// serving results regardless of the advertised total.
	MaxListings int
	// ErrorCutoff is the number of consecutive failures past
	// MaxListings after which the walk gives up.
	ErrorCutoff int
	// MinReviews drops businesses with fewer reviews than this.
	MinReviews int
	// MaxPages caps the number of pages walked; zero means no cap.
	MaxPages int
}

// Enumerator walks listing pages for one location at a time.
type Enumerator struct {
	transport Transport
	logger    logger.Logger
	opts      Options
}

func NewEnumerator(transport Transport, log logger.Logger, opts Options) *Enumerator {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.MaxListings <= 0 {
		opts.MaxListings = 1000
	}
	if opts.ErrorCutoff <= 0 {
		opts.ErrorCutoff = 3
	}
	return &Enumerator{transport: transport, logger: log, opts: opts}
}

// pageInfo is the pagination block of one parsed listing page.
type pageInfo struct {
	TotalResults   int
	ResultsPerPage int
}

// Enumerate walks every listing page for location and returns the
// discovered businesses. A page failure before the total is known ends
// the walk; past the listing ceiling, failures are tolerated up to the
// error cutoff because the source routinely stops serving there.
func (e *Enumerator) Enumerate(ctx context.Context, location string) ([]models.Business, error) {
	var (
		out          []models.Business
		total        = -1
		perPage      = e.opts.PageSize
		pastCapFails = 0
		pages        = 0
	)

	for start := 0; ; start += perPage {
		if e.opts.MaxPages > 0 && pages >= e.opts.MaxPages {
			break
		}
		pages++

		raw, fetchErr := e.transport.FetchListingPage(ctx, location, start)
		var (
			businesses []models.Business
			info       *pageInfo
			parseErr   error
		)
		if fetchErr == nil {
			businesses, info, parseErr = e.parsePage(raw, location)
		}

		if err := firstErr(fetchErr, parseErr); err != nil {
			if start >= e.opts.MaxListings {
				pastCapFails++
				e.logger.Warn("Listing page failed past ceiling", map[string]interface{}{
					"location":         location,
					"start":            start,
					"consecutiveFails": pastCapFails,
					"error":            err.Error(),
				})
				if pastCapFails >= e.opts.ErrorCutoff {
					break
				}
				continue
			}
			if total < 0 {
				// Nothing parsed yet, no way to know how far to walk.
				return out, err
			}
			e.logger.Warn("Listing page failed, skipping", map[string]interface{}{
				"location": location,
				"start":    start,
				"error":    err.Error(),
			})
			continue
		}

		pastCapFails = 0
		out = append(out, businesses...)
		if info != nil {
			total = info.TotalResults
			if info.ResultsPerPage > 0 {
				perPage = info.ResultsPerPage
			}
		}

		// Without a pagination block there is no way to know how far
		// to walk; a single page is all we get.
		if total < 0 || start+perPage >= total {
			break
		}
	}

	e.logger.Info("Listing walk finished", map[string]interface{}{
		"location":   location,
		"discovered": len(out),
		"total":      total,
	})
	return out, nil
}

// parsePage decodes one search JSON page into businesses plus its
// pagination block. A malformed individual entry is skipped; a page
// without the expected component list fails whole.
func (e *Enumerator) parsePage(raw []byte, location string) ([]models.Business, *pageInfo, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, errors.NewPageParseFailedError(location, err)
	}

	searchProps, _ := payload["searchPageProps"].(map[string]interface{})
	components, ok := searchProps["mainContentComponentsListProps"].([]interface{})
	if !ok {
		return nil, nil, errors.NewFeedInvalidError("missing search component list")
	}

	var (
		businesses []models.Business
		info       *pageInfo
	)
	for _, entry := range components {
		component, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		if component["type"] == "pagination" {
			props, _ := component["props"].(map[string]interface{})
			totalResults, okTotal := props["totalResults"].(float64)
			resultsPerPage, _ := props["resultsPerPage"].(float64)
			if okTotal {
				info = &pageInfo{
					TotalResults:   int(totalResults),
					ResultsPerPage: int(resultsPerPage),
				}
			}
			continue
		}

		bizID, ok := component["bizId"].(string)
		if !ok {
			continue
		}
		business, ok := e.extractBusiness(bizID, component, location)
		if !ok {
			continue
		}
		businesses = append(businesses, business)
	}
	return businesses, info, nil
}

// extractBusiness maps one search result component to a Business.
// Returns false for ads, below-cutoff businesses and entries missing
// their result block.
func (e *Enumerator) extractBusiness(bizID string, component map[string]interface{}, location string) (models.Business, bool) {
	result, ok := component["searchResultBusiness"].(map[string]interface{})
	if !ok {
		return models.Business{}, false
	}

	if isAd, _ := result["isAd"].(bool); isAd {
		return models.Business{}, false
	}

	numReviews := 0
	if count, ok := result["reviewCount"].(float64); ok {
		numReviews = int(count)
	}
	if numReviews < e.opts.MinReviews {
		return models.Business{}, false
	}

	name, _ := result["name"].(string)
	name = strings.ReplaceAll(name, " - Temp. CLOSED", "")
	name = strings.ReplaceAll(name, " - CLOSED", "")

	businessURL, _ := result["businessUrl"].(string)
	businessURL = strings.SplitN(businessURL, "?osq=", 2)[0]

	rating, _ := result["rating"].(float64)
	phone, _ := result["phone"].(string)
	address, _ := result["formattedAddress"].(string)

	var categories []string
	if rawCategories, ok := result["categories"].([]interface{}); ok {
		for _, rawCategory := range rawCategories {
			category, _ := rawCategory.(map[string]interface{})
			if title, ok := category["title"].(string); ok {
				categories = append(categories, title)
			}
		}
	}

	return models.Business{
		BusinessID:    bizID,
		BusinessName:  name,
		BusinessURL:   businessURL,
		Location:      location,
		OverallRating: rating,
		NumReviews:    numReviews,
		Categories:    categories,
		PhoneNumber:   phone,
		AddressLine1:  address,
	}, true
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
