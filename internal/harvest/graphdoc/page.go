// internal/harvest/graphdoc/page.go
package graphdoc

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed business landing page: the flat attribute document,
// the key of the business entry inside it, and the page-level props that
// live outside the document.
type Page struct {
	Doc       Document
	BaseKey   string
	PageProps map[string]interface{}

	BusinessID    string
	OverallRating *float64
	IsClosed      *int

	// FallbackMenuURL is the hosted-menu path recovered from the page
	// markup when the structured props omit it.
	FallbackMenuURL string

	RawHTML string
}

// ParseLandingPage scans the embedded JSON blocks of a landing page and
// assembles a Page. Blocks that fail to parse are skipped; a page
// without any recognizable block still yields a usable (mostly empty)
// Page.
func ParseLandingPage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	page := &Page{RawHTML: html}

	doc.Find(`script[type="application/json"]`).Each(func(_ int, script *goquery.Selection) {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(script.Text()), &parsed); err != nil {
			return
		}

		for key := range parsed {
			if strings.Contains(key, "$ROOT_QUERY.business") {
				page.adoptDocument(parsed)
				break
			}
		}

		if props, ok := parsed["bizDetailsPageProps"].(map[string]interface{}); ok {
			page.PageProps = props
			page.adoptAnalytics(parsed)
		}
	})

	page.FallbackMenuURL = fallbackMenuURL(doc)
	return page, nil
}

// adoptDocument keeps the flat document and locates the business entry
// key from the root query record.
func (p *Page) adoptDocument(parsed map[string]interface{}) {
	root := asMap(parsed["ROOT_QUERY"])
	if root == nil {
		return
	}
	for key, value := range root {
		if !strings.Contains(key, "business") {
			continue
		}
		if id := asString(asMap(value)["id"]); id != "" {
			p.BaseKey = id
			p.Doc = Document(parsed)
			return
		}
	}
}

// adoptAnalytics reads the business id, overall rating and closure flag
// from the analytics dimensions, each carried as a [name, value] pair.
func (p *Page) adoptAnalytics(parsed map[string]interface{}) {
	www := asMap(dig(parsed, "gaConfig", "dimensions", "www"))
	if www == nil {
		return
	}

	if id := dimensionValue(www["business_id"]); id != "" {
		p.BusinessID = id
	}
	if raw := dimensionValue(www["rating"]); raw != "" {
		if rating, err := strconv.ParseFloat(raw, 64); err == nil {
			p.OverallRating = &rating
		}
	}
	if raw := dimensionValue(www["biz_closed"]); raw != "" {
		closed := 0
		if raw != "False" {
			closed = 1
		}
		p.IsClosed = &closed
	}
}

func dimensionValue(v interface{}) string {
	pair, _ := v.([]interface{})
	if len(pair) < 2 {
		return ""
	}
	return asString(pair[1])
}

// fallbackMenuURL recovers the hosted-menu path from the "Yelp menu"
// anchor. External redirect links are not menus and are dropped.
func fallbackMenuURL(doc *goquery.Document) string {
	var url string
	doc.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		if !strings.Contains(anchor.Text(), "Yelp menu") {
			return true
		}
		href, _ := anchor.Attr("href")
		parts := strings.Split(href, "www.yelp.com")
		href = parts[len(parts)-1]
		if strings.Contains(href, "/biz_redir?") {
			return true
		}
		url = href
		return false
	})
	return url
}
