package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mjishnu/StoreListings/internal/catalog"
	"github.com/mjishnu/StoreListings/internal/httpx"
)

var testSelector = catalog.Selector{
	Market:   "US",
	Language: "en-us",
	Family:   catalog.FamilyDesktop,
	Arch:     catalog.ArchX64,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *catalog.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return catalog.New(httpx.New(), testSelector,
		catalog.WithEdgeBase(srv.URL), catalog.WithCatalogBase(srv.URL))
}

func TestClient_Product(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/9PX1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("market"); got != "US" {
			t.Errorf("market = %q, want US", got)
		}
		_, _ = w.Write([]byte(`{"Payload": {
			"ProductId": "9PX1",
			"Title": "App",
			"Description": "Does things. Quite well.",
			"PublisherName": "Contoso",
			"Installer": {"Type": "WindowsUpdate"}
		}}`))
	})

	p, err := c.Product(context.Background(), "9PX1")
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if p.Title != "App" || p.PublisherName != "Contoso" {
		t.Errorf("unexpected product %+v", p)
	}
	if p.ShortDescription != "Does things." {
		t.Errorf("ShortDescription = %q, want derived first sentence", p.ShortDescription)
	}
	if p.InstallerType != catalog.InstallerPackaged {
		t.Errorf("InstallerType = %v, want packaged", p.InstallerType)
	}
}

func TestClient_Product_UpstreamStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such product", http.StatusNotFound)
	})
	_, err := c.Product(context.Background(), "9NOPE")
	var upstream *httpx.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusNotFound {
		t.Fatalf("got %v, want UpstreamError{404}", err)
	}
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Payload": {"SearchResults": [
			{"ProductId": "9AAA", "Title": "First", "DisplayPrice": "Free",
			 "Images": [{"Url":"tile","Height":300,"Width":300}]},
			{"Title": "no id, skipped"},
			{"ProductId": "9BBB", "Title": "Second", "AverageRating": 0}
		]}}`))
	})

	cards, err := c.Search(context.Background(), "example")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2 (malformed entry skipped)", len(cards))
	}
	if cards[0].Image.URL != "tile" {
		t.Errorf("card image = %q, want tile", cards[0].Image.URL)
	}
	// Cards keep a literal zero rating.
	if cards[1].AverageRating != 0 {
		t.Errorf("AverageRating = %v, want 0", cards[1].AverageRating)
	}
	if cards[1].Image != catalog.PlaceholderImage {
		t.Errorf("imageless card should get the placeholder, got %+v", cards[1].Image)
	}
}

func TestClient_Packages_EnvelopeSelection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("languages"); got != "en-us,neutral" {
			t.Errorf("languages = %q, want en-us,neutral", got)
		}
		_, _ = w.Write([]byte(`{"Products": [
			{"ProductId": "OTHER", "DisplaySkuAvailabilities": []},
			{"ProductId": "9px1",
			 "LocalizedProperties": [{"ProductTitle": "App"}],
			 "DisplaySkuAvailabilities": [{"Sku": {"Properties": {"Packages": [
				{"PackageFullName": "Contoso.App_1.0.0.0_x64__8wekyb3d8bbwe",
				 "FulfillmentData": "{\"WuCategoryId\":\"cat-1\"}"}
			 ]}}}]}
		]}`))
	})

	pkgs, err := c.Packages(context.Background(), "9PX1", true)
	if err != nil {
		t.Fatalf("Packages: %v", err)
	}
	if len(pkgs) != 1 || pkgs[0].WuCategoryID != "cat-1" {
		t.Fatalf("pkgs = %+v, want one package from the matching envelope", pkgs)
	}
	if pkgs[0].Title != "App" {
		t.Errorf("Title = %q, want App", pkgs[0].Title)
	}
}

func TestClient_Packages_ErrorDocumentBody(t *testing.T) {
	// A 200 carrying an error document instead of the Products array
	// must surface as a schema failure, never as zero packages.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": "NotFound", "data": []}`))
	})

	_, err := c.Packages(context.Background(), "9PX1", true)
	var schemaErr *httpx.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if schemaErr.Field != "Products" {
		t.Errorf("Field = %q, want Products", schemaErr.Field)
	}
}

func TestClient_Cancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Product(ctx, "9PX1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled through the error chain", err)
	}
}
