// Package extract pulls structured data out of page HTML: product fields via
// per-platform selector tables and JSON-LD, clean text via semantic
// selectors, and arbitrary caller-supplied selector maps. Pure functions over
// HTML; nothing here touches the browser.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fieldSelectors maps product fields to CSS selector candidates, most
// specific first. Covers the big storefront platforms plus generic classes.
var fieldSelectors = []struct {
	field     string
	selectors []string
	attr      string
}{
	{"name", []string{"#productTitle", "h1.a-size-large", ".product-title", ".product_title", "h1[itemprop='name']"}, ""},
	{"price", []string{"[data-testid='price']", ".a-price-whole", ".price", ".current-price", "[data-price]", "[itemprop='price']"}, ""},
	{"description", []string{"[data-feature-name='productDescription']", ".product-description", "#description", "[itemprop='description']"}, ""},
	{"availability", []string{"#availability span", ".availability", "#stock-status", "[itemprop='availability']"}, ""},
	{"brand", []string{"[data-testid='brand']", ".brand", "#brand", "[itemprop='brand']"}, ""},
	{"rating", []string{"[data-testid='rating']", ".a-icon-alt", ".rating", ".star-rating"}, ""},
	{"image", []string{"[data-testid='image']", "#landingImage", ".product-image img", ".main-image img"}, "src"},
}

// platformIndicators detect the storefront platform from markers in the DOM.
var platformIndicators = []struct {
	platform  string
	selectors []string
}{
	{"amazon", []string{".a-price", "#productTitle", "#acrPopover"}},
	{"shopify", []string{".product-form", ".shopify-section", ".product-title"}},
	{"woocommerce", []string{".woocommerce", ".product_title", ".woocommerce-Price-amount"}},
}

// mainContentSelectors locate the primary content region for clean-text
// extraction, tried in order.
var mainContentSelectors = []string{
	"main", "article", "[role='main']", "#content", ".content", ".main-content",
}

// Product extracts structured product information from HTML. CSS selector
// hits win over JSON-LD values; JSON-LD fills the gaps.
func Product(html, url string) (*ProductFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	fields := map[string]string{}
	for _, fs := range fieldSelectors {
		for _, sel := range fs.selectors {
			value := ""
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if fs.attr != "" {
					value = strings.TrimSpace(s.AttrOr(fs.attr, ""))
				} else {
					value = strings.TrimSpace(s.Text())
				}
				return value == ""
			})
			if value != "" {
				fields[fs.field] = value
				break
			}
		}
	}

	// JSON-LD structured data fills fields the selectors missed.
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		if product := findJSONLDProduct(payload); product != nil {
			mergeJSONLDProduct(fields, product)
		}
	})

	platform, _ := detectPlatform(doc)

	// Cleaning mutates the document, so it happens after every field read.
	raw := cleanText(doc)
	if len(raw) > rawSnippetLimit {
		raw = raw[:rawSnippetLimit]
	}

	return &ProductFields{
		Name:         fields["name"],
		Description:  fields["description"],
		Price:        fields["price"],
		Availability: fields["availability"],
		Brand:        fields["brand"],
		Rating:       fields["rating"],
		ImageURL:     fields["image"],
		Platform:     platform,
		SourceURL:    url,
		RawData:      raw,
	}, nil
}

// rawSnippetLimit bounds the debugging snippet carried alongside extracted
// fields.
const rawSnippetLimit = 2000

// ProductFields is the extraction result before it is mapped onto the API
// product model.
type ProductFields struct {
	Name         string
	Description  string
	Price        string
	Availability string
	Brand        string
	Rating       string
	ImageURL     string
	Platform     string
	SourceURL    string
	// RawData is the cleaned page text the fields were read from, truncated,
	// kept for judging extraction quality.
	RawData string
}

// findJSONLDProduct walks a JSON-LD payload (including @graph containers and
// top-level arrays) looking for a Product node.
func findJSONLDProduct(payload interface{}) map[string]interface{} {
	switch v := payload.(type) {
	case map[string]interface{}:
		if t, _ := v["@type"].(string); strings.EqualFold(t, "Product") {
			return v
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			return findJSONLDProduct(graph)
		}
	case []interface{}:
		for _, item := range v {
			if product := findJSONLDProduct(item); product != nil {
				return product
			}
		}
	}
	return nil
}

// mergeJSONLDProduct copies JSON-LD values into fields that are still empty.
func mergeJSONLDProduct(fields map[string]string, product map[string]interface{}) {
	setIfEmpty := func(field, value string) {
		value = strings.TrimSpace(value)
		if value != "" && fields[field] == "" {
			fields[field] = value
		}
	}

	setIfEmpty("name", stringValue(product["name"]))
	setIfEmpty("description", stringValue(product["description"]))
	setIfEmpty("image", firstString(product["image"]))

	switch brand := product["brand"].(type) {
	case string:
		setIfEmpty("brand", brand)
	case map[string]interface{}:
		setIfEmpty("brand", stringValue(brand["name"]))
	}

	if offers, ok := product["offers"].(map[string]interface{}); ok {
		setIfEmpty("price", stringValue(offers["price"]))
		setIfEmpty("availability", stringValue(offers["availability"]))
	}

	if rating, ok := product["aggregateRating"].(map[string]interface{}); ok {
		setIfEmpty("rating", stringValue(rating["ratingValue"]))
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", s), ".0")
	}
	return ""
}

func firstString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []interface{}:
		if len(s) > 0 {
			return stringValue(s[0])
		}
	}
	return ""
}

// CleanText extracts the main readable content of a page, falling back to
// the whole body, with whitespace collapsed.
func CleanText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	return cleanText(doc), nil
}

// cleanText strips non-content elements from the document and collapses the
// main region's text. Destructive: callers read everything else first.
func cleanText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	var text string
	for _, sel := range mainContentSelectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			text = node.Text()
			break
		}
	}
	if text == "" {
		text = doc.Find("body").Text()
	}

	return strings.Join(strings.Fields(text), " ")
}

// BySelectors extracts one value per named selector. Missing selectors yield
// empty strings rather than errors, so partial pages still produce output.
func BySelectors(html string, selectors map[string]string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	results := make(map[string]string, len(selectors))
	for key, sel := range selectors {
		results[key] = strings.TrimSpace(doc.Find(sel).First().Text())
	}
	return results, nil
}

// DetectPlatform identifies the storefront platform behind a page and the
// selectors that matched. Empty platform means no known platform matched.
func DetectPlatform(html string) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse html: %w", err)
	}
	platform, matched := detectPlatform(doc)
	return platform, matched, nil
}

func detectPlatform(doc *goquery.Document) (string, []string) {
	best := ""
	var bestMatched []string

	for _, pi := range platformIndicators {
		var matched []string
		for _, sel := range pi.selectors {
			if doc.Find(sel).Length() > 0 {
				matched = append(matched, sel)
			}
		}
		if len(matched) > len(bestMatched) {
			best = pi.platform
			bestMatched = matched
		}
	}

	return best, bestMatched
}
