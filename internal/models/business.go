// internal/models/business.go
package models

// Business is one harvested restaurant listing as discovered by the
// listing enumerator. Attributes are enriched by later harvest passes.
type Business struct {
	BusinessID    string   `json:"businessId"`
	BusinessName  string   `json:"businessName"`
	BusinessURL   string   `json:"businessUrl"`
	Location      string   `json:"location"`
	OverallRating float64  `json:"overallRating"`
	NumReviews    int      `json:"numReviews"`
	Categories    []string `json:"categories"`
	PhoneNumber   string   `json:"phoneNumber"`
	AddressLine1  string   `json:"addressLine1"`
}

// BusinessDetails carries every attribute reconstructed from a business
// landing page. Pointer fields distinguish "absent" from zero values so
// the merge with persisted attributes keeps whichever side is non-empty.
type BusinessDetails struct {
	IsClosed        *int     `json:"isBusinessClosed"`
	OverallRating   *float64 `json:"overallRating"`
	YearEstablished *int     `json:"yearEstablished"`
	NumReviews      *int     `json:"numReviews"`
	MenuURL         *string  `json:"menuUrl"`
	PriceRange      *string  `json:"priceRange"`
	PhoneNumber     *string  `json:"phoneNumber"`

	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	AddressLine3 *string `json:"addressLine3"`
	City         *string `json:"city"`
	RegionCode   *string `json:"regionCode"`
	PostalCode   *string `json:"postalCode"`
	CountryCode  *string `json:"countryCode"`

	// Keyed operation_hours_mon through operation_hours_sun.
	OperationHours map[string]string `json:"operationHours"`

	Categories   []string `json:"categories"`
	TopFoodItems []string `json:"topFoodItems"`

	// { year : [[monthIndex, rating], ...], ... } as served by the source.
	MonthlyRatingsByYear map[string]interface{} `json:"monthlyRatingsByYear"`

	RatingHistogram map[string]int `json:"ratingHistogram"`
}

// Review is one finalized review item bound for the store and the
// bucket exporter.
type Review struct {
	ReviewID         string `json:"review_id"`
	Text             string `json:"review"`
	Date             string `json:"date"`
	Rating           int    `json:"rating"`
	BusinessName     string `json:"business_name"`
	BusinessID       string `json:"business_id"`
	BusinessAlias    string `json:"business_alias"`
	BusinessLocation string `json:"business_location"`
	Sentiment        int    `json:"sentiment"`
}

// MenuItem is one dish on a menu page. ProcessedName is the canonical
// form; an empty ProcessedName means the item was discarded.
type MenuItem struct {
	Name          string `json:"name"`
	ProcessedName string `json:"processed_name"`
	Price         string `json:"price,omitempty"`
	Description   string `json:"desc,omitempty"`
}

// Menu maps submenu name -> category -> items.
type Menu map[string]map[string][]MenuItem
