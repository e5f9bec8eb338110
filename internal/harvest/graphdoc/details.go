// internal/harvest/graphdoc/details.go
package graphdoc

import (
	"regexp"
	"strconv"
	"strings"

	"resto-harvester/internal/harvest/textnorm"
	"resto-harvester/internal/models"
)

// organizedPropertiesKey is the literal composite field name the source
// emits for the amenity property section.
const organizedPropertiesKey = `organizedProperties({"clientPlatform":"WWW"})`

var (
	upperRunPattern  = regexp.MustCompile(`([A-Z]+)`)
	camelWordPattern = regexp.MustCompile(`([A-Z][a-z]+)`)
)

// Categories resolves the business category titles.
func (p *Page) Categories() []string {
	entry := asMap(p.Doc[p.BaseKey])
	if entry == nil {
		return nil
	}
	refs, _ := entry["categories"].([]interface{})

	var categories []string
	for _, ref := range refs {
		r := asMap(ref)
		if r == nil {
			continue
		}
		category := asMap(p.Doc[asString(r["id"])])
		if title := asString(category["title"]); title != "" {
			categories = append(categories, title)
		}
	}
	return categories
}

// OperationHours resolves the weekly hours keyed operation_hours_mon
// through operation_hours_sun. Days the document does not carry stay
// absent.
func (p *Page) OperationHours() map[string]string {
	hours := map[string]string{}
	ids := p.Doc.attributeIDs(p.BaseKey, "operationHours",
		"regularHoursMergedWithSpecialHoursForCurrentWeek")

	for _, id := range ids {
		entry := asMap(p.Doc[id])
		if entry == nil {
			continue
		}
		day := strings.ToLower(asString(entry["dayOfWeekShort"]))
		if day == "" {
			continue
		}
		regular := asMap(entry["regularHours"])
		if regular == nil {
			continue
		}
		spans, _ := regular["json"].([]interface{})
		if len(spans) == 0 {
			continue
		}
		hours["operation_hours_"+day] = strings.ToLower(asString(spans[0]))
	}
	return hours
}

// Amenities resolves the amenity flags as amenity_<alias> -> 0/1.
func (p *Page) Amenities() map[string]int {
	amenities := map[string]int{}
	ids := p.Doc.attributeIDs(p.BaseKey, organizedPropertiesKey, "properties")

	for _, id := range ids {
		entry := asMap(p.Doc[id])
		if entry == nil {
			continue
		}
		alias := asString(entry["alias"])
		if alias == "" {
			continue
		}
		name := tagName("amenity", splitCamel(alias))

		active := 0
		if isActive, ok := entry["isActive"].(bool); ok && isActive {
			active = 1
		}
		amenities[name] = active
	}
	return amenities
}

// ServiceUpdates resolves the service availability flags as
// covid19_<label> -> 0/1.
func (p *Page) ServiceUpdates() map[string]int {
	updates := map[string]int{}
	ids := p.Doc.attributeIDs(p.BaseKey+".serviceUpdateSummary",
		"attributeAvailabilitySections", "attributeAvailabilityList")

	for _, id := range ids {
		entry := asMap(p.Doc[id])
		if entry == nil {
			continue
		}
		label := asString(entry["label"])
		if label == "" {
			continue
		}
		name := tagName("covid19", strings.Fields(strings.ToLower(label)))

		available := 0
		if asString(entry["availability"]) == "AVAILABLE" {
			available = 1
		}
		updates[name] = available
	}
	return updates
}

// PriceRange resolves the price range description ("$$", "$$$", ...).
func (p *Page) PriceRange() *string {
	entry := asMap(p.Doc[p.BaseKey+".priceRange"])
	if entry == nil {
		return nil
	}
	if description := asString(entry["description"]); description != "" {
		return &description
	}
	return nil
}

// PhoneNumber resolves the formatted phone number.
func (p *Page) PhoneNumber() *string {
	entry := asMap(p.Doc[p.BaseKey+".phoneNumber"])
	if entry == nil {
		return nil
	}
	if formatted := asString(entry["formatted"]); formatted != "" {
		return &formatted
	}
	return nil
}

// Address resolves the street address fields plus the country code from
// the sibling location entries.
func (p *Page) Address() map[string]*string {
	address := map[string]*string{
		"address_line1": nil, "address_line2": nil, "address_line3": nil,
		"city": nil, "region_code": nil, "postal_code": nil, "country_code": nil,
	}

	entry := asMap(p.Doc[p.BaseKey+".location.address"])
	if entry == nil {
		return address
	}
	for key, value := range entry {
		normalized := strings.ToLower(strings.Join(splitCamel(key), "_"))
		if _, wanted := address[normalized]; !wanted {
			continue
		}
		s := asString(value)
		address[normalized] = &s
	}

	if country := asMap(p.Doc[p.BaseKey+".location.country"]); country != nil {
		if code := asString(country["code"]); code != "" {
			address["country_code"] = &code
		}
	}
	return address
}

// YearEstablished reads the founding year from the page props.
func (p *Page) YearEstablished() *int {
	raw := dig(p.PageProps, "fromTheBusinessProps", "fromTheBusinessContentProps", "yearEstablished")
	switch v := raw.(type) {
	case float64:
		year := int(v)
		return &year
	case string:
		if year, err := strconv.Atoi(v); err == nil {
			return &year
		}
	}
	return nil
}

// NumReviews reads the review count, falling back to the "<n> reviews"
// text when the structured field is missing.
func (p *Page) NumReviews() *int {
	if f, ok := asFloat(dig(p.PageProps, "ratingDetailsProps", "numReviews")); ok {
		n := int(f)
		return &n
	}
	if m := reviewCountPattern.FindStringSubmatch(p.RawHTML); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	return nil
}

var reviewCountPattern = regexp.MustCompile(`(\d+) reviews`)

// MonthlyRatingsByYear reads the per-month rating series.
func (p *Page) MonthlyRatingsByYear() map[string]interface{} {
	return asMap(dig(p.PageProps, "ratingDetailsProps", "monthlyRatingsByYear"))
}

// RatingHistogram reads the star histogram as
// num_reviews_<label> -> count.
func (p *Page) RatingHistogram() map[string]int {
	histogram := map[string]int{}
	bars, _ := dig(p.PageProps, "ratingDetailsProps", "ratingHistogram", "histogramData").([]interface{})
	for _, bar := range bars {
		entry := asMap(bar)
		if entry == nil {
			continue
		}
		label := asString(entry["label"])
		count, ok := asFloat(entry["count"])
		if label == "" || !ok {
			continue
		}
		key := tagName("num_reviews", strings.Fields(label))
		histogram[key] = int(count)
	}
	return histogram
}

// TopFoodItems reads the popular dish names, canonicalized; discarded
// names are dropped.
func (p *Page) TopFoodItems() []string {
	dishes, _ := dig(p.PageProps, "popularDishesCarouselProps", "popularDishes").([]interface{})

	var items []string
	for _, dish := range dishes {
		entry := asMap(dish)
		if entry == nil {
			continue
		}
		if name := textnorm.Normalize(asString(entry["dishName"])); name != "" {
			items = append(items, name)
		}
	}
	return items
}

// MenuURL reads the hosted menu link. External menus are skipped; the
// anchor-text fallback found during page parsing covers businesses
// whose props omit the link.
func (p *Page) MenuURL() *string {
	props := asMap(dig(p.PageProps, "bizContactInfoProps", "businessMenuProps"))
	if props != nil {
		if external, _ := props["isExternalMenu"].(bool); !external {
			if href := asString(asMap(props["menuLink"])["href"]); href != "" {
				return &href
			}
		}
	}
	if p.FallbackMenuURL != "" {
		url := p.FallbackMenuURL
		return &url
	}
	return nil
}

// Details assembles the full attribute record. Every field is extracted
// independently; a field the page does not carry stays at its zero
// value and never disturbs the rest.
func (p *Page) Details() models.BusinessDetails {
	details := models.BusinessDetails{
		IsClosed:             p.IsClosed,
		OverallRating:        p.OverallRating,
		YearEstablished:      p.YearEstablished(),
		NumReviews:           p.NumReviews(),
		MenuURL:              p.MenuURL(),
		PriceRange:           p.PriceRange(),
		PhoneNumber:          p.PhoneNumber(),
		Categories:           p.Categories(),
		TopFoodItems:         p.TopFoodItems(),
		MonthlyRatingsByYear: p.MonthlyRatingsByYear(),
		RatingHistogram:      p.RatingHistogram(),
	}

	address := p.Address()
	details.AddressLine1 = address["address_line1"]
	details.AddressLine2 = address["address_line2"]
	details.AddressLine3 = address["address_line3"]
	details.City = address["city"]
	details.RegionCode = address["region_code"]
	details.PostalCode = address["postal_code"]
	details.CountryCode = address["country_code"]

	if hours := p.OperationHours(); len(hours) > 0 {
		details.OperationHours = hours
	}
	return details
}

// splitCamel breaks a camel-case alias into words:
// "OutdoorSeating" -> ["Outdoor", "Seating"].
func splitCamel(s string) []string {
	s = upperRunPattern.ReplaceAllString(s, " $1")
	s = camelWordPattern.ReplaceAllString(s, " $1")
	return strings.Fields(s)
}

// tagName joins a prefix and words into a column-safe tag name.
func tagName(prefix string, words []string) string {
	name := strings.Join(append([]string{prefix}, words...), "_")
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// dig walks nested maps, returning nil as soon as a step is missing.
func dig(m map[string]interface{}, keys ...string) interface{} {
	var current interface{} = m
	for _, key := range keys {
		node := asMap(current)
		if node == nil {
			return nil
		}
		current = node[key]
	}
	return current
}
