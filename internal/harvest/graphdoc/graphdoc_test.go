// internal/harvest/graphdoc/graphdoc_test.go
package graphdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const testBaseKey = "Business:abc123"

func ref(id string) map[string]interface{} {
	return map[string]interface{}{"id": id}
}

// createTestDocument assembles a flat document carrying one of each
// attribute structure the resolver understands.
func createTestDocument() Document {
	return Document{
		testBaseKey: map[string]interface{}{
			"categories": []interface{}{ref("Category:1"), ref("Category:2")},
			"operationHours":       ref("OperationHours:0"),
			organizedPropertiesKey: []interface{}{ref("PropertySection:0")},
		},
		"Category:1": map[string]interface{}{"title": "Steakhouses"},
		"Category:2": map[string]interface{}{"title": "Bars"},

		"OperationHours:0": map[string]interface{}{
			"regularHoursMergedWithSpecialHoursForCurrentWeek": []interface{}{
				ref("Hours:mon.0"),
			},
		},
		"Hours:mon.0": map[string]interface{}{
			"dayOfWeekShort": "Mon",
			"regularHours": map[string]interface{}{
				"json": []interface{}{"11:00 AM - 10:00 PM"},
			},
		},

		"PropertySection:0": map[string]interface{}{
			"properties": []interface{}{ref("Property:0"), ref("Property:1")},
		},
		"Property:0": map[string]interface{}{"alias": "OutdoorSeating", "isActive": true},
		"Property:1": map[string]interface{}{"alias": "AcceptsCreditCards", "isActive": false},

		testBaseKey + ".serviceUpdateSummary": map[string]interface{}{
			"attributeAvailabilitySections": map[string]interface{}{"id": "ServiceSection:0"},
		},
		"ServiceSection:0": map[string]interface{}{
			"attributeAvailabilityList": []interface{}{
				ref("ServiceAttr:0"), ref("ServiceAttr:1"),
			},
		},
		"ServiceAttr:0": map[string]interface{}{
			"label": "Curbside Pickup", "availability": "AVAILABLE",
		},
		"ServiceAttr:1": map[string]interface{}{
			"label": "Sit-down Dining", "availability": "UNAVAILABLE",
		},

		testBaseKey + ".priceRange":   map[string]interface{}{"description": "$$"},
		testBaseKey + ".phoneNumber":  map[string]interface{}{"formatted": "(415) 555-0134"},
		testBaseKey + ".location.country": map[string]interface{}{"code": "US"},
		testBaseKey + ".location.address": map[string]interface{}{
			"addressLine1": "140 New Montgomery St",
			"addressLine2": "",
			"addressLine3": nil,
			"city":         "San Francisco",
			"regionCode":   "CA",
			"postalCode":   "94105",
		},
	}
}

func createTestPage() *Page {
	return &Page{
		Doc:     createTestDocument(),
		BaseKey: testBaseKey,
		PageProps: map[string]interface{}{
			"fromTheBusinessProps": map[string]interface{}{
				"fromTheBusinessContentProps": map[string]interface{}{
					"yearEstablished": float64(1987),
				},
			},
			"ratingDetailsProps": map[string]interface{}{
				"numReviews": float64(412),
				"monthlyRatingsByYear": map[string]interface{}{
					"2025": []interface{}{float64(4), float64(5)},
				},
				"ratingHistogram": map[string]interface{}{
					"histogramData": []interface{}{
						map[string]interface{}{"label": "5 stars", "count": float64(300)},
						map[string]interface{}{"label": "1 star", "count": float64(12)},
					},
				},
			},
			"popularDishesCarouselProps": map[string]interface{}{
				"popularDishes": []interface{}{
					map[string]interface{}{"dishName": "Ribeye Steak"},
					map[string]interface{}{"dishName": "xx"},
				},
			},
			"bizContactInfoProps": map[string]interface{}{
				"businessMenuProps": map[string]interface{}{
					"isExternalMenu": false,
					"menuLink": map[string]interface{}{
						"href": "/menu/some-steakhouse-san-francisco",
					},
				},
			},
		},
	}
}

// ==========================
// Document Resolver Tests
// ==========================

func TestDocument_Resolve(t *testing.T) {
	doc := Document{
		"root":   map[string]interface{}{"id": "child"},
		"child":  map[string]interface{}{"title": "value"},
		"plain":  "scalar",
		"list":   []interface{}{ref("child"), "inline"},
		"selfy":  map[string]interface{}{"id": "selfy"},
		"broken": map[string]interface{}{"id": "nowhere"},
	}

	tests := []struct {
		name     string
		entryKey string
		expected interface{}
	}{
		{
			name:     "reference resolves to target entry",
			entryKey: "root",
			expected: map[string]interface{}{"title": "value"},
		},
		{
			name:     "scalar passes through",
			entryKey: "plain",
			expected: "scalar",
		},
		{
			name:     "array resolves element-wise",
			entryKey: "list",
			expected: []interface{}{map[string]interface{}{"title": "value"}, "inline"},
		},
		{
			name:     "missing key yields nil",
			entryKey: "absent",
			expected: nil,
		},
		{
			name:     "dangling reference is returned as-is",
			entryKey: "broken",
			expected: map[string]interface{}{"id": "nowhere"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, doc.Resolve(tt.entryKey))
		})
	}
}

func TestDocument_Resolve_CycleTerminates(t *testing.T) {
	doc := Document{
		"a": map[string]interface{}{"id": "b"},
		"b": map[string]interface{}{"id": "a"},
	}

	assert.Nil(t, doc.Resolve("a"))
}

func TestDocument_AttributeIDs_SingleSection(t *testing.T) {
	doc := createTestDocument()

	ids := doc.attributeIDs(testBaseKey+".serviceUpdateSummary",
		"attributeAvailabilitySections", "attributeAvailabilityList")

	assert.Equal(t, []string{"ServiceAttr:0", "ServiceAttr:1"}, ids)
}

func TestDocument_AttributeIDs_SectionList(t *testing.T) {
	doc := createTestDocument()

	ids := doc.attributeIDs(testBaseKey, organizedPropertiesKey, "properties")

	assert.Equal(t, []string{"Property:0", "Property:1"}, ids)
}

// ==========================
// Field Extraction Tests
// ==========================

func TestPage_Categories(t *testing.T) {
	page := createTestPage()
	assert.Equal(t, []string{"Steakhouses", "Bars"}, page.Categories())
}

func TestPage_OperationHours(t *testing.T) {
	page := createTestPage()

	hours := page.OperationHours()

	assert.Equal(t, map[string]string{
		"operation_hours_mon": "11:00 am - 10:00 pm",
	}, hours)
}

func TestPage_Amenities(t *testing.T) {
	page := createTestPage()

	amenities := page.Amenities()

	assert.Equal(t, map[string]int{
		"amenity_outdoor_seating":      1,
		"amenity_accepts_credit_cards": 0,
	}, amenities)
}

func TestPage_ServiceUpdates(t *testing.T) {
	page := createTestPage()

	updates := page.ServiceUpdates()

	assert.Equal(t, map[string]int{
		"covid19_curbside_pickup": 1,
		"covid19_sit_down_dining": 0,
	}, updates)
}

func TestPage_Address(t *testing.T) {
	page := createTestPage()

	address := page.Address()

	require.NotNil(t, address["address_line1"])
	assert.Equal(t, "140 New Montgomery St", *address["address_line1"])
	require.NotNil(t, address["city"])
	assert.Equal(t, "San Francisco", *address["city"])
	require.NotNil(t, address["country_code"])
	assert.Equal(t, "US", *address["country_code"])
	require.NotNil(t, address["address_line2"])
	assert.Equal(t, "", *address["address_line2"])
}

func TestPage_RatingHistogram(t *testing.T) {
	page := createTestPage()

	assert.Equal(t, map[string]int{
		"num_reviews_5_stars": 300,
		"num_reviews_1_star":  12,
	}, page.RatingHistogram())
}

func TestPage_TopFoodItems_DropsDiscardedNames(t *testing.T) {
	page := createTestPage()

	// "xx" is below the minimum label length and must not survive.
	assert.Equal(t, []string{"ribeye steak"}, page.TopFoodItems())
}

func TestPage_MenuURL(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *Page)
		expected *string
	}{
		{
			name:     "hosted menu link",
			mutate:   func(p *Page) {},
			expected: strPtr("/menu/some-steakhouse-san-francisco"),
		},
		{
			name: "external menus are skipped",
			mutate: func(p *Page) {
				props := p.PageProps["bizContactInfoProps"].(map[string]interface{})
				menu := props["businessMenuProps"].(map[string]interface{})
				menu["isExternalMenu"] = true
			},
			expected: nil,
		},
		{
			name: "anchor fallback when props are missing",
			mutate: func(p *Page) {
				delete(p.PageProps, "bizContactInfoProps")
				p.FallbackMenuURL = "/menu/fallback-spot"
			},
			expected: strPtr("/menu/fallback-spot"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := createTestPage()
			tt.mutate(page)
			assert.Equal(t, tt.expected, page.MenuURL())
		})
	}
}

func strPtr(s string) *string { return &s }

func TestPage_Details_FieldIsolation(t *testing.T) {
	// Corrupt the hours section; every other field must still extract.
	page := createTestPage()
	page.Doc["Hours:mon.0"] = "not an object"

	details := page.Details()

	assert.Empty(t, details.OperationHours)
	assert.Equal(t, []string{"Steakhouses", "Bars"}, details.Categories)
	require.NotNil(t, details.PriceRange)
	assert.Equal(t, "$$", *details.PriceRange)
	require.NotNil(t, details.YearEstablished)
	assert.Equal(t, 1987, *details.YearEstablished)
	require.NotNil(t, details.NumReviews)
	assert.Equal(t, 412, *details.NumReviews)
}

func TestPage_Details_EmptyPage(t *testing.T) {
	page := &Page{}

	details := page.Details()

	assert.Nil(t, details.PriceRange)
	assert.Nil(t, details.PhoneNumber)
	assert.Nil(t, details.YearEstablished)
	assert.Empty(t, details.Categories)
	assert.Empty(t, details.OperationHours)
	assert.Empty(t, page.Amenities())
	assert.Empty(t, page.ServiceUpdates())
}

// ==========================
// Landing Page Parse Tests
// ==========================

const testLandingHTML = `<html><body>
<script type="application/json">{"bogus": }</script>
<script type="application/json">{
  "ROOT_QUERY": {"business({\"BizEncId\":\"abc123\"})": {"id": "Business:abc123"}},
  "$ROOT_QUERY.business({\"BizEncId\":\"abc123\"})": {"id": "Business:abc123"},
  "Business:abc123": {"categories": [{"id": "Category:1"}]},
  "Category:1": {"title": "Steakhouses"}
}</script>
<script type="application/json">{
  "bizDetailsPageProps": {"ratingDetailsProps": {"numReviews": 412}},
  "gaConfig": {"dimensions": {"www": {
    "business_id": ["business_id", "abc123"],
    "rating": ["rating", "4.5"],
    "biz_closed": ["biz_closed", "False"]
  }}}
}</script>
<p><a href="https://www.yelp.com/menu/some-steakhouse-san-francisco"><span>Full menu on Yelp menu</span></a></p>
</body></html>`

func TestParseLandingPage(t *testing.T) {
	page, err := ParseLandingPage(testLandingHTML)
	require.NoError(t, err)

	assert.Equal(t, "Business:abc123", page.BaseKey)
	assert.Equal(t, "abc123", page.BusinessID)
	require.NotNil(t, page.OverallRating)
	assert.Equal(t, 4.5, *page.OverallRating)
	require.NotNil(t, page.IsClosed)
	assert.Equal(t, 0, *page.IsClosed)
	assert.Equal(t, []string{"Steakhouses"}, page.Categories())
	assert.Equal(t, "/menu/some-steakhouse-san-francisco", page.FallbackMenuURL)

	n := page.NumReviews()
	require.NotNil(t, n)
	assert.Equal(t, 412, *n)
}

func TestParseLandingPage_ClosedBusiness(t *testing.T) {
	html := `<script type="application/json">{
	  "bizDetailsPageProps": {},
	  "gaConfig": {"dimensions": {"www": {"biz_closed": ["biz_closed", "True"]}}}
	}</script>`

	page, err := ParseLandingPage(html)
	require.NoError(t, err)

	require.NotNil(t, page.IsClosed)
	assert.Equal(t, 1, *page.IsClosed)
}

func TestParseLandingPage_NoRecognizableBlocks(t *testing.T) {
	page, err := ParseLandingPage(`<html><body><p>maintenance</p></body></html>`)
	require.NoError(t, err)

	assert.Empty(t, page.BaseKey)
	assert.Nil(t, page.Doc)
	assert.Nil(t, page.PageProps)
}
