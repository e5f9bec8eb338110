// internal/harvest/menus/harvester.go
package menus

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/models"
)

// Transport fetches one menu page as HTML by absolute URL.
type Transport interface {
	FetchMenuPage(ctx context.Context, menuURL string) (string, error)
}

// Result carries the outcome of one business's menu harvest.
type Result struct {
	// Menu is nil when the stored menu URL turned out invalid.
	Menu models.Menu
	// MenuURLValid is false when the stored URL must be cleared so a
	// later details pass can rediscover it.
	MenuURLValid bool
	// ScrapedFlag is the persisted menu_items_scraped_flag value.
	ScrapedFlag int
}

// Harvester fetches a business's hosted menu, then fans out to every
// submenu tab found on the main page.
type Harvester struct {
	transport Transport
	logger    logger.Logger
	baseURL   string
}

func NewHarvester(transport Transport, log logger.Logger, baseURL string) *Harvester {
	return &Harvester{
		transport: transport,
		logger:    log,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Harvest fetches and extracts the menu behind menuURL (site-relative
// or absolute). A main page without menu sections invalidates the
// stored URL; submenu failures are logged and skipped so one bad tab
// does not lose the rest of the menu.
func (h *Harvester) Harvest(ctx context.Context, businessID, menuURL string) (*Result, error) {
	html, err := h.transport.FetchMenuPage(ctx, h.absolute(menuURL))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	sections, err := ExtractSections(doc)
	if err != nil {
		h.logger.Warn("Stored menu URL is stale", map[string]interface{}{
			"businessId": businessID,
			"menuUrl":    menuURL,
		})
		return &Result{Menu: nil, MenuURLValid: false, ScrapedFlag: 0}, nil
	}

	menu := models.Menu{SubmenuName(doc): sections}
	for _, link := range SubmenuLinks(doc) {
		name, submenu, ok := h.harvestSubmenu(ctx, businessID, link)
		if ok && len(submenu) > 0 {
			menu[name] = submenu
		}
	}

	return &Result{Menu: menu, MenuURLValid: true, ScrapedFlag: 1}, nil
}

func (h *Harvester) harvestSubmenu(ctx context.Context, businessID, link string) (string, map[string][]models.MenuItem, bool) {
	html, err := h.transport.FetchMenuPage(ctx, h.absolute(link))
	if err != nil {
		h.logger.Warn("Submenu fetch failed", map[string]interface{}{
			"businessId": businessID,
			"submenuUrl": link,
			"error":      err.Error(),
		})
		return "", nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, false
	}

	sections, err := ExtractSections(doc)
	if err != nil {
		return "", nil, false
	}

	// The submenu key is the last path segment of its URL.
	name := link
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name, sections, true
}

func (h *Harvester) absolute(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return h.baseURL + link
}
