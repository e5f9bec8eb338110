// internal/harvest/menus/extractor.go

// Package menus extracts hosted menu pages into categorized dish
// lists. Dish names run through the text normalizer; items whose
// canonical form comes out empty are discarded as noise.
package menus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/harvest/textnorm"
	"resto-harvester/internal/models"
)

// ExtractSections parses the category blocks of one menu page into
// category -> items. Categories that end up with no usable items are
// dropped.
func ExtractSections(doc *goquery.Document) (map[string][]models.MenuItem, error) {
	root := doc.Find(".menu-sections").First()
	if root.Length() == 0 {
		return nil, errors.NewPageParseFailedError("menu page", errMissingSections{})
	}

	headers := root.Find("div.section-header.section-header--no-spacing")
	blocks := root.Find("div.u-space-b3")

	// The first spacing block is sometimes a preamble, not a category.
	offset := blocks.Length() - headers.Length()
	if offset < 0 {
		offset = 0
	}

	sections := make(map[string][]models.MenuItem)
	headers.Each(func(i int, header *goquery.Selection) {
		block := blocks.Eq(i + offset)
		if block.Length() == 0 {
			return
		}

		category := strings.ToLower(strings.TrimSpace(header.Find("h2").First().Text()))
		if category == "" {
			return
		}

		items := extractItems(block)
		if len(items) > 0 {
			sections[category] = items
		}
	})
	return sections, nil
}

// extractItems walks the dish blocks of one category, pairing each
// details block with its price block by position.
func extractItems(block *goquery.Selection) []models.MenuItem {
	details := block.Find("div[class*='menu-item-details']")
	prices := block.Find("div[class*='menu-item-prices']")

	var items []models.MenuItem
	details.Each(func(i int, detail *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(detail.Find("h4").First().Text()))
		processed := textnorm.Normalize(name)
		if processed == "" {
			return
		}

		item := models.MenuItem{
			Name:          name,
			ProcessedName: processed,
		}

		if price := prices.Eq(i); price.Length() > 0 {
			amount := price.Find(".menu-item-price-amount").First().Text()
			item.Price = strings.TrimSpace(strings.ReplaceAll(amount, "\\n", ""))
		}
		if desc := detail.Find("p").First(); desc.Length() > 0 {
			item.Description = desc.Text()
		}

		items = append(items, item)
	})
	return items
}

// SubmenuName derives the persisted key of the currently displayed
// submenu from the page's submenu tab list: lowered, slashes and
// whitespace collapsed to dashes. Pages without tabs use "menu".
func SubmenuName(doc *goquery.Document) string {
	first := doc.Find(".sub-menus li").First()
	if first.Length() == 0 {
		return "menu"
	}

	name := strings.ToLower(strings.TrimSpace(first.Text()))
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		return "menu"
	}
	return name
}

// SubmenuLinks returns the hrefs of every submenu tab on the page.
func SubmenuLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find(".sub-menus li a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return links
}

type errMissingSections struct{}

func (errMissingSections) Error() string { return "no menu sections on page" }
