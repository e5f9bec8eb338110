// internal/harvest/reviews/feed.go
package reviews

import (
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/unicode/norm"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/validation"
	"resto-harvester/internal/models"
)

// feedDateLayout is the localized date format served by the feed.
// Month and day arrive without zero padding.
const feedDateLayout = "1/2/2006"

// storedDateLayout is the normalized form persisted with each review.
const storedDateLayout = "2006-01-02"

type feedPayload struct {
	Reviews    []feedReview   `json:"reviews"`
	Pagination feedPagination `json:"pagination"`
}

type feedPagination struct {
	StartIndex   int `json:"startIndex"`
	TotalResults int `json:"totalResults"`
}

type feedReview struct {
	ID            string      `json:"id"`
	Rating        int         `json:"rating"`
	LocalizedDate string      `json:"localizedDate"`
	Comment       feedComment `json:"comment"`
	Business      feedBiz     `json:"business"`
}

type feedComment struct {
	Text string `json:"text"`
}

type feedBiz struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// ParseFeed decodes one review-feed page into finalized review items.
// When schema is non-nil the raw payload is validated against it first
// and a non-conforming payload fails the whole page. Items whose date
// cannot be parsed are dropped individually; a bad item never poisons
// its page.
func ParseFeed(raw []byte, schema *gojsonschema.Schema, location string) ([]models.Review, error) {
	if schema != nil {
		result, err := validation.ValidateRaw(raw, schema)
		if err != nil {
			return nil, errors.NewFeedInvalidError(err.Error())
		}
		if !result.Valid {
			return nil, errors.NewFeedInvalidError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	var payload feedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.NewFeedInvalidError(err.Error())
	}

	reviews := make([]models.Review, 0, len(payload.Reviews))
	for _, item := range payload.Reviews {
		date, err := time.Parse(feedDateLayout, item.LocalizedDate)
		if err != nil {
			continue
		}

		reviews = append(reviews, models.Review{
			ReviewID:         item.ID,
			Text:             NormalizeText(item.Comment.Text),
			Date:             date.Format(storedDateLayout),
			Rating:           item.Rating,
			BusinessName:     item.Business.Name,
			BusinessID:       item.Business.ID,
			BusinessAlias:    item.Business.Alias,
			BusinessLocation: location,
			Sentiment:        sentiment(item.Rating),
		})
	}
	return reviews, nil
}

// NormalizeText strips feed markup from review text: break tags become
// spaces, HTML entities are unescaped, the result is NFKD-normalized
// and runs of whitespace collapse to single spaces.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "</br>", " ")
	text = html.UnescapeString(text)
	text = norm.NFKD.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// sentiment is the coarse polarity label stored with each review:
// 1 for ratings of four stars and up, 0 otherwise.
func sentiment(rating int) int {
	if rating >= 4 {
		return 1
	}
	return 0
}
