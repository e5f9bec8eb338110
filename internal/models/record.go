// internal/models/record.go
package models

// Record is the persisted row for one business: the fixed attribute
// schema plus the dynamic tag columns (covid19_* / amenity_*) discovered
// at harvest time.
type Record struct {
	BusinessID   string
	BusinessName string
	BusinessURL  string
	Location     string

	Details BusinessDetails

	// last_reviews_count; -1 means the feed has never been harvested.
	LastReviewsCount int
	// errors_at textual form: "-1" or "[(a, b), (c, d)]".
	ErrorsAt string

	MenuItemsScrapedFlag int
	Menu                 Menu

	// Tag columns: name -> 0/1. Names not yet present in the table are
	// added by the store before writing.
	Tags map[string]int
}

// MergeDetails folds freshly extracted details over previously persisted
// ones, field by field: the new value wins when it is non-empty,
// otherwise the old value is kept. Slices and maps count as empty when
// they have no elements.
//
// This is the typed counterpart of the source system's generic
// dictionary merge so schema drift fails at compile time instead of
// surfacing as silently dropped columns.
func MergeDetails(old, new BusinessDetails) BusinessDetails {
	out := old

	if new.IsClosed != nil {
		out.IsClosed = new.IsClosed
	}
	if new.OverallRating != nil {
		out.OverallRating = new.OverallRating
	}
	if new.YearEstablished != nil {
		out.YearEstablished = new.YearEstablished
	}
	if new.NumReviews != nil {
		out.NumReviews = new.NumReviews
	}
	out.MenuURL = preferString(old.MenuURL, new.MenuURL)
	out.PriceRange = preferString(old.PriceRange, new.PriceRange)
	out.PhoneNumber = preferString(old.PhoneNumber, new.PhoneNumber)

	out.AddressLine1 = preferString(old.AddressLine1, new.AddressLine1)
	out.AddressLine2 = preferString(old.AddressLine2, new.AddressLine2)
	out.AddressLine3 = preferString(old.AddressLine3, new.AddressLine3)
	out.City = preferString(old.City, new.City)
	out.RegionCode = preferString(old.RegionCode, new.RegionCode)
	out.PostalCode = preferString(old.PostalCode, new.PostalCode)
	out.CountryCode = preferString(old.CountryCode, new.CountryCode)

	if len(new.OperationHours) > 0 {
		out.OperationHours = new.OperationHours
	}
	if len(new.Categories) > 0 {
		out.Categories = new.Categories
	}
	if len(new.TopFoodItems) > 0 {
		out.TopFoodItems = new.TopFoodItems
	}
	if len(new.MonthlyRatingsByYear) > 0 {
		out.MonthlyRatingsByYear = new.MonthlyRatingsByYear
	}
	if len(new.RatingHistogram) > 0 {
		out.RatingHistogram = new.RatingHistogram
	}

	return out
}

func preferString(old, new *string) *string {
	if new != nil && *new != "" {
		return new
	}
	return old
}
