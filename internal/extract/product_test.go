package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amazonStyleHTML = `<html><body>
<span id="productTitle"> Wireless Headphones </span>
<span class="a-price-whole">79.99</span>
<div id="availability"><span>In Stock</span></div>
<span class="a-icon-alt">4.5 out of 5 stars</span>
<img id="landingImage" src="https://images.example.com/headphones.jpg">
<span class="a-price">$79.99</span>
</body></html>`

func TestProductFromSelectors(t *testing.T) {
	p, err := Product(amazonStyleHTML, "https://example.com/dp/B000")
	require.NoError(t, err)

	assert.Equal(t, "Wireless Headphones", p.Name)
	assert.Equal(t, "79.99", p.Price)
	assert.Equal(t, "In Stock", p.Availability)
	assert.Equal(t, "4.5 out of 5 stars", p.Rating)
	assert.Equal(t, "https://images.example.com/headphones.jpg", p.ImageURL)
	assert.Equal(t, "amazon", p.Platform)
	assert.Equal(t, "https://example.com/dp/B000", p.SourceURL)
}

func TestProductFromJSONLD(t *testing.T) {
	html := `<html><body>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Espresso Machine",
  "description": "Makes espresso.",
  "image": ["https://images.example.com/espresso.jpg"],
  "brand": {"@type": "Brand", "name": "BrewCo"},
  "offers": {"@type": "Offer", "price": "249.00", "availability": "https://schema.org/InStock"},
  "aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.7"}
}
</script>
</body></html>`

	p, err := Product(html, "https://shop.example.com/espresso")
	require.NoError(t, err)

	assert.Equal(t, "Espresso Machine", p.Name)
	assert.Equal(t, "Makes espresso.", p.Description)
	assert.Equal(t, "249.00", p.Price)
	assert.Equal(t, "https://schema.org/InStock", p.Availability)
	assert.Equal(t, "BrewCo", p.Brand)
	assert.Equal(t, "4.7", p.Rating)
	assert.Equal(t, "https://images.example.com/espresso.jpg", p.ImageURL)
}

func TestProductSelectorsWinOverJSONLD(t *testing.T) {
	html := `<html><body>
<h1 class="product-title">Selector Name</h1>
<script type="application/ld+json">
{"@type": "Product", "name": "JSONLD Name", "offers": {"price": "10.00"}}
</script>
</body></html>`

	p, err := Product(html, "")
	require.NoError(t, err)

	assert.Equal(t, "Selector Name", p.Name)
	// JSON-LD still fills what the selectors missed.
	assert.Equal(t, "10.00", p.Price)
}

func TestProductJSONLDGraph(t *testing.T) {
	html := `<html><body>
<script type="application/ld+json">
{"@graph": [
  {"@type": "WebPage", "name": "ignored"},
  {"@type": "Product", "name": "Graph Product"}
]}
</script>
</body></html>`

	p, err := Product(html, "")
	require.NoError(t, err)
	assert.Equal(t, "Graph Product", p.Name)
}

func TestProductIgnoresBrokenJSONLD(t *testing.T) {
	html := `<html><body>
<h1 class="product-title">Still Works</h1>
<script type="application/ld+json">{not json at all</script>
</body></html>`

	p, err := Product(html, "")
	require.NoError(t, err)
	assert.Equal(t, "Still Works", p.Name)
}

func TestProductCarriesRawSnippet(t *testing.T) {
	p, err := Product(amazonStyleHTML, "")
	require.NoError(t, err)

	assert.Contains(t, p.RawData, "Wireless Headphones")
	assert.Contains(t, p.RawData, "In Stock")
}

func TestProductRawSnippetIsBounded(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("filler words ", 1000) + "</p></body></html>"

	p, err := Product(long, "")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(p.RawData), rawSnippetLimit)
	assert.NotEmpty(t, p.RawData)
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		platform string
	}{
		{"amazon", amazonStyleHTML, "amazon"},
		{"woocommerce", `<html><body class="woocommerce"><h1 class="product_title">X</h1><span class="woocommerce-Price-amount">5</span></body></html>`, "woocommerce"},
		{"shopify", `<html><body><div class="shopify-section"><form class="product-form"></form></div></body></html>`, "shopify"},
		{"none", `<html><body><p>a plain page</p></body></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, matched, err := DetectPlatform(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, platform)
			if tt.platform == "" {
				assert.Empty(t, matched)
			} else {
				assert.NotEmpty(t, matched)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	html := `<html><body>
<nav>Home | About</nav>
<script>console.log("noise")</script>
<main>
  <h1>Title</h1>
  <p>First    paragraph.</p>
</main>
<footer>Copyright</footer>
</body></html>`

	text, err := CleanText(html)
	require.NoError(t, err)

	assert.Equal(t, "Title First paragraph.", text)
}

func TestCleanTextFallsBackToBody(t *testing.T) {
	text, err := CleanText(`<html><body><p>no main region</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "no main region", text)
}

func TestBySelectors(t *testing.T) {
	html := `<html><body>
<h1 id="title">Hello</h1>
<span class="price">$5</span>
</body></html>`

	got, err := BySelectors(html, map[string]string{
		"title":   "#title",
		"price":   ".price",
		"missing": "#nope",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", got["title"])
	assert.Equal(t, "$5", got["price"])
	assert.Equal(t, "", got["missing"])
}
