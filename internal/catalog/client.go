package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/mjishnu/StoreListings/internal/httpx"
)

const (
	defaultEdgeBase    = "https://storeedgefd.dsx.mp.microsoft.com/v9.0"
	defaultCatalogBase = "https://displaycatalog.mp.microsoft.com/v7.0"
)

// Selector fixes the market/language/device target for one Client. All
// resolution calls made through the client use the same target.
type Selector struct {
	Market   string       // e.g. "US"
	Language string       // e.g. "en-us"
	Family   DeviceFamily // e.g. FamilyDesktop
	Arch     Architecture // e.g. ArchX64
}

// Client resolves store listings against the two catalog services.
type Client struct {
	http        *httpx.Client
	edgeBase    string
	catalogBase string
	sel         Selector
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithEdgeBase overrides the store edge endpoint (tests).
func WithEdgeBase(base string) Option {
	return func(c *Client) { c.edgeBase = strings.TrimRight(base, "/") }
}

// WithCatalogBase overrides the display catalog endpoint (tests).
func WithCatalogBase(base string) Option {
	return func(c *Client) { c.catalogBase = strings.TrimRight(base, "/") }
}

// New creates a catalog Client over the shared HTTP client.
func New(hc *httpx.Client, sel Selector, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		edgeBase:    defaultEdgeBase,
		catalogBase: defaultCatalogBase,
		sel:         sel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Selector returns the target this client resolves against.
func (c *Client) Selector() Selector { return c.sel }

// Product fetches and normalizes the detail payload for one listing.
func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	u := fmt.Sprintf("%s/products/%s?%s", c.edgeBase, url.PathEscape(productID), c.edgeQuery())
	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}
	payload, err := selectEnvelope(res, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}
	p, err := productFromPayload(payload, c.sel.Arch)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}
	logrus.Debugf("catalog: product %s resolved (%s, installer=%s)", p.ProductID, p.Title, p.InstallerType)
	return p, nil
}

// Packages fetches the display catalog entry for a listing and returns
// one Package per packaging target. includeNeutralLocale additionally
// requests the language-neutral variant of localized properties.
func (c *Client) Packages(ctx context.Context, productID string, includeNeutralLocale bool) ([]Package, error) {
	languages := c.sel.Language
	if includeNeutralLocale {
		languages += ",neutral"
	}
	q := url.Values{}
	q.Set("bigIds", productID)
	q.Set("market", c.sel.Market)
	q.Set("languages", languages)
	q.Set("fieldsTemplate", "Details")
	u := fmt.Sprintf("%s/products?%s", c.catalogBase, q.Encode())

	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("packages %s: %w", productID, err)
	}
	// A 200 without the Products array is an error document, not an
	// empty catalog entry.
	products := res.Get("Products")
	if !products.IsArray() {
		return nil, fmt.Errorf("packages %s: %w", productID, &httpx.SchemaError{Field: "Products"})
	}
	env, err := selectEnvelope(products, productID)
	if err != nil {
		return nil, fmt.Errorf("packages %s: %w", productID, err)
	}
	pkgs, err := packagesFromProduct(env)
	if err != nil {
		return nil, fmt.Errorf("packages %s: %w", productID, err)
	}
	logrus.Debugf("catalog: %d package(s) for %s", len(pkgs), productID)
	return pkgs, nil
}

// Search returns listing cards matching a query.
func (c *Client) Search(ctx context.Context, query string) ([]Card, error) {
	q := c.edgeValues()
	q.Set("query", query)
	u := fmt.Sprintf("%s/pages/searchResults?%s", c.edgeBase, q.Encode())
	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return c.cards(res.Get("Payload.SearchResults")), nil
}

// Suggest returns autosuggest cards for a query prefix.
func (c *Client) Suggest(ctx context.Context, prefix string) ([]Card, error) {
	q := c.edgeValues()
	q.Set("prefix", prefix)
	u := fmt.Sprintf("%s/autosuggest?%s", c.edgeBase, q.Encode())
	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("suggest %q: %w", prefix, err)
	}
	return c.cards(res.Get("Payload.AssetSuggestions")), nil
}

// Featured returns the cards of one recommendation collection, e.g.
// "TopFree" or "TopPaid".
func (c *Client) Featured(ctx context.Context, collection string) ([]Card, error) {
	u := fmt.Sprintf("%s/recommendations/collections/%s?%s",
		c.edgeBase, url.PathEscape(collection), c.edgeQuery())
	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("featured %q: %w", collection, err)
	}
	return c.cards(res.Get("Payload.Cards")), nil
}

// cards normalizes a card array, skipping entries without an identity.
// Malformed siblings never fail a whole listing page.
func (c *Client) cards(arr gjson.Result) []Card {
	raw := arr.Array()
	out := make([]Card, 0, len(raw))
	for _, j := range raw {
		card, ok := cardFromJSON(j)
		if !ok {
			logrus.Debugf("catalog: skipping card without ProductId/Title")
			continue
		}
		out = append(out, card)
	}
	return out
}

func (c *Client) edgeValues() url.Values {
	q := url.Values{}
	q.Set("market", c.sel.Market)
	q.Set("locale", c.sel.Language)
	q.Set("deviceFamily", string(c.sel.Family))
	return q
}

func (c *Client) edgeQuery() string { return c.edgeValues().Encode() }
