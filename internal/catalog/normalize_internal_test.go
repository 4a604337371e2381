package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/version"
)

func TestCardImage_PrefersLast300Square(t *testing.T) {
	images := gjson.Parse(`[
		{"Url":"a","Height":300,"Width":300},
		{"Url":"b","Height":200,"Width":200},
		{"Url":"c","Height":300,"Width":300},
		{"Url":"d","Height":1080,"Width":1920}
	]`).Array()
	got := cardImage(images)
	if got.URL != "c" {
		t.Errorf("cardImage picked %q, want %q (last 300×300)", got.URL, "c")
	}
}

func TestCardImage_FallsBackToFirst(t *testing.T) {
	images := gjson.Parse(`[
		{"Url":"a","Height":50,"Width":50},
		{"Url":"b","Height":200,"Width":200}
	]`).Array()
	if got := cardImage(images); got.URL != "a" {
		t.Errorf("cardImage picked %q, want first image %q", got.URL, "a")
	}
}

func TestCardImage_EmptyUsesPlaceholder(t *testing.T) {
	if got := cardImage(nil); got != PlaceholderImage {
		t.Errorf("cardImage(nil) = %+v, want placeholder", got)
	}
}

func TestPickLogo(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			name: "last 100×100 wins",
			json: `[{"Url":"a","Height":100,"Width":100},{"Url":"b","Height":100,"Width":100},{"Url":"c","Height":50,"Width":50}]`,
			want: "b",
		},
		{
			name: "largest square when no 100×100",
			json: `[{"Url":"a","Height":64,"Width":64},{"Url":"b","Height":256,"Width":256},{"Url":"c","Height":310,"Width":620}]`,
			want: "b",
		},
		{
			name: "first candidate when no square",
			json: `[{"Url":"a","Height":310,"Width":620},{"Url":"b","Height":150,"Width":300}]`,
			want: "a",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := pickLogo(gjson.Parse(c.json).Array()); got.URL != c.want {
				t.Errorf("pickLogo = %q, want %q", got.URL, c.want)
			}
		})
	}
	if got := pickLogo(nil); got != PlaceholderImage {
		t.Errorf("pickLogo(nil) = %+v, want placeholder", got)
	}
}

func TestAcceptColor(t *testing.T) {
	if got := acceptColor("#2D2D2D"); got != "#2D2D2D" {
		t.Errorf("acceptColor(#2D2D2D) = %q", got)
	}
	for _, bad := range []string{"", "transparent", "rgb(0,0,0)", "2D2D2D"} {
		if got := acceptColor(bad); got != "Transparent" {
			t.Errorf("acceptColor(%q) = %q, want Transparent", bad, got)
		}
	}
}

func TestDeriveShortDescription(t *testing.T) {
	cases := []struct {
		name        string
		short, full string
		want        string
	}{
		{"explicit short wins", "Short.", "Long description. More text.", "Short."},
		{"cut after first period", "", "First sentence. Second sentence.", "First sentence."},
		{"cut at line break", "", "no period here\nsecond line", "no period here"},
		{"crlf line break", "", "no period here\r\nsecond line", "no period here"},
		{"empty full", "", "", ""},
		{"short text kept whole", "", "tiny", "tiny"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := deriveShortDescription(c.short, c.full); got != c.want {
				t.Errorf("deriveShortDescription = %q, want %q", got, c.want)
			}
		})
	}
}

func TestDeriveShortDescription_HardTruncate(t *testing.T) {
	full := strings.Repeat("a", 200)
	got := deriveShortDescription("", full)
	if want := strings.Repeat("a", 150) + "…"; got != want {
		t.Errorf("hard truncate yielded %d chars, want 150 + ellipsis", len(got))
	}
}

func TestInstallerTypeFromTag(t *testing.T) {
	cases := map[string]InstallerType{
		"WindowsUpdate": InstallerPackaged,
		"WPM":           InstallerUnpackaged,
		"DirectInstall": InstallerUnpackaged,
		"windowsupdate": InstallerUnknown, // tag match is case-sensitive
		"":              InstallerUnknown,
		"Web":           InstallerUnknown,
	}
	for tag, want := range cases {
		if got := installerTypeFromTag(tag); got != want {
			t.Errorf("installerTypeFromTag(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestResolveVersion_ArchitectureFallback(t *testing.T) {
	payload := gjson.Parse(`{
		"Installer": {"Dependencies": {"x64": {"Version": "3.0"}, "x86": {"Version": "2.9"}}}
	}`)
	if got := resolveVersion(payload, InstallerUnpackaged, ArchARM64); got != "3.0" {
		t.Errorf("arm64 fallback = %q, want 3.0", got)
	}
	if got := resolveVersion(payload, InstallerUnpackaged, ArchX86); got != "2.9" {
		t.Errorf("x86 fallback = %q, want 2.9", got)
	}
	if got := resolveVersion(payload, InstallerUnpackaged, ArchARM); got != "" {
		t.Errorf("arm fallback = %q, want empty (arm never falls through)", got)
	}
}

func TestResolveVersion_TopLevelWins(t *testing.T) {
	payload := gjson.Parse(`{
		"Version": "1.2.3.4",
		"Installer": {"Dependencies": {"x64": {"Version": "9.9"}}}
	}`)
	if got := resolveVersion(payload, InstallerUnpackaged, ArchX64); got != "1.2.3.4" {
		t.Errorf("resolveVersion = %q, want top-level 1.2.3.4", got)
	}
}

func TestProductFromPayload_MinimalRoundTrip(t *testing.T) {
	p, err := productFromPayload(gjson.Parse(`{"ProductId":"9PX1","Title":"App"}`), ArchX64)
	if err != nil {
		t.Fatalf("productFromPayload: %v", err)
	}
	if p.ProductID != "9PX1" {
		t.Errorf("ProductID = %q, want 9PX1", p.ProductID)
	}
	if p.Rating != nil || p.RatingCount != nil || p.Size != nil {
		t.Error("zero rating/count/size should be unset")
	}
	if p.Logo != PlaceholderImage {
		t.Errorf("Logo = %+v, want placeholder", p.Logo)
	}
	if p.InstallerType != InstallerUnknown {
		t.Errorf("InstallerType = %v, want unknown", p.InstallerType)
	}
}

func TestProductFromPayload_MissingMandatory(t *testing.T) {
	var schemaErr *httpx.SchemaError
	_, err := productFromPayload(gjson.Parse(`{"Title":"App"}`), ArchX64)
	if !errors.As(err, &schemaErr) || schemaErr.Field != "ProductId" {
		t.Fatalf("missing ProductId: got %v, want SchemaError{ProductId}", err)
	}
	_, err = productFromPayload(gjson.Parse(`{"ProductId":"9PX1"}`), ArchX64)
	if !errors.As(err, &schemaErr) || schemaErr.Field != "Title" {
		t.Fatalf("missing Title: got %v, want SchemaError{Title}", err)
	}
}

func TestProductFromPayload_BundleAndScreenshots(t *testing.T) {
	p, err := productFromPayload(gjson.Parse(`{
		"ProductId": "9BUNDLE",
		"Title": "Bundle",
		"AverageRating": 4.5,
		"RatingCount": 120,
		"Images": [
			{"Url":"shot1","ImageType":"Screenshot","Height":1080,"Width":1920},
			{"Url":"logo1","ImageType":"logo","Height":100,"Width":100,"BackgroundColor":"#112233"},
			{"Url":"hero","ImageType":"Hero","Height":600,"Width":1200},
			{"Url":"shot2","ImageType":"screenshot","Height":1080,"Width":1920}
		],
		"Skus": [{"BundledSkus": ["sku-a", "sku-b"]}]
	}`), ArchX64)
	if err != nil {
		t.Fatalf("productFromPayload: %v", err)
	}
	if !p.IsBundle {
		t.Error("expected bundle detection from first SKU's BundledSkus")
	}
	if len(p.Screenshots) != 2 || p.Screenshots[0].URL != "shot1" {
		t.Errorf("Screenshots = %+v, want shot1, shot2", p.Screenshots)
	}
	if p.Logo.URL != "logo1" || p.Logo.BackgroundColor != "#112233" {
		t.Errorf("Logo = %+v, want logo1/#112233", p.Logo)
	}
	if p.Rating == nil || *p.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", p.Rating)
	}
	if p.RatingCount == nil || *p.RatingCount != 120 {
		t.Errorf("RatingCount = %v, want 120", p.RatingCount)
	}
}

func TestSelectEnvelope(t *testing.T) {
	arr := gjson.Parse(`[
		{"Payload": {"ProductId": "AAA", "Title": "first"}},
		{"Payload": {"ProductId": "9px1", "Title": "match"}},
		{"Payload": {"ProductId": "ZZZ", "Title": "last"}}
	]`)
	got, err := selectEnvelope(arr, "9PX1")
	if err != nil {
		t.Fatalf("selectEnvelope: %v", err)
	}
	if got.Get("Title").String() != "match" {
		t.Errorf("selected %q, want case-insensitive id match", got.Get("Title").String())
	}

	got, err = selectEnvelope(arr, "NOPE")
	if err != nil {
		t.Fatalf("selectEnvelope fallback: %v", err)
	}
	if got.Get("Title").String() != "last" {
		t.Errorf("selected %q, want last envelope on no match", got.Get("Title").String())
	}

	var schemaErr *httpx.SchemaError
	if _, err := selectEnvelope(gjson.Parse(`[]`), "9PX1"); !errors.As(err, &schemaErr) {
		t.Errorf("empty envelope array: got %v, want SchemaError", err)
	}
}

func TestPackagesFromProduct(t *testing.T) {
	// MinVersion/Version use the catalog's packed 64-bit encoding.
	env := gjson.Parse(`{
		"ProductId": "9WZDNCRFJBMP",
		"LocalizedProperties": [{"ProductTitle": "Example App"}],
		"DisplaySkuAvailabilities": [{"Sku": {"Properties": {"Packages": [{
			"PackageFullName": "Contoso.App_2.0.1.0_x64__8wekyb3d8bbwe",
			"Architectures": ["x64"],
			"Version": 562949953486848,
			"PlatformDependencies": [
				{"PlatformName": "Windows.Desktop", "MinVersion": 2814750835277824}
			],
			"FrameworkDependencies": [
				{"PackageIdentity": "Microsoft.VCLibs.140.00", "MinVersion": 3940651686166528}
			],
			"FulfillmentData": "{\"WuCategoryId\":\"cat-123\",\"PackageFamilyName\":\"Contoso.App_8wekyb3d8bbwe\"}"
		}]}}}]
	}`)
	pkgs, err := packagesFromProduct(env)
	if err != nil {
		t.Fatalf("packagesFromProduct: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1", len(pkgs))
	}
	p := pkgs[0]
	if p.PackageIdentityName != "Contoso.App" {
		t.Errorf("PackageIdentityName = %q", p.PackageIdentityName)
	}
	if want := (version.Version{Major: 2, Minor: 0, Build: 1, Revision: 0}); p.AppVersion != want {
		t.Errorf("AppVersion = %v, want %v", p.AppVersion, want)
	}
	if p.WuCategoryID != "cat-123" {
		t.Errorf("WuCategoryID = %q, want cat-123", p.WuCategoryID)
	}
	if p.PackageFamilyName != "Contoso.App_8wekyb3d8bbwe" {
		t.Errorf("PackageFamilyName = %q", p.PackageFamilyName)
	}
	if p.Architecture != ArchX64 {
		t.Errorf("Architecture = %q, want x64", p.Architecture)
	}
	if len(p.PlatformDependencies) != 1 || p.PlatformDependencies[0].PlatformFamily != FamilyDesktop {
		t.Fatalf("PlatformDependencies = %+v", p.PlatformDependencies)
	}
	if want := (version.Version{Major: 10, Minor: 0, Build: 16299, Revision: 0}); p.PlatformDependencies[0].MinVersion != want {
		t.Errorf("platform MinVersion = %v, want %v", p.PlatformDependencies[0].MinVersion, want)
	}
	if len(p.FrameworkDependencies) != 1 || p.FrameworkDependencies[0].PackageIdentity != "Microsoft.VCLibs.140.00" {
		t.Fatalf("FrameworkDependencies = %+v", p.FrameworkDependencies)
	}
	if want := (version.Version{Major: 14, Minor: 0, Build: 30704, Revision: 0}); p.FrameworkDependencies[0].MinVersion != want {
		t.Errorf("framework MinVersion = %v, want %v", p.FrameworkDependencies[0].MinVersion, want)
	}
}

func TestPackagesFromProduct_MissingProductID(t *testing.T) {
	env := gjson.Parse(`{"LocalizedProperties": [{"ProductTitle": "No Identity"}]}`)
	_, err := packagesFromProduct(env)
	var schemaErr *httpx.SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Field != "ProductId" {
		t.Fatalf("missing ProductId: got %v, want SchemaError{ProductId}", err)
	}
}

func TestPackageApplicableTo(t *testing.T) {
	pkg := Package{PlatformDependencies: []PlatformDependency{
		{PlatformFamily: FamilyUniversal, MinVersion: version.Version{Major: 10, Minor: 0, Build: 17763, Revision: 0}},
	}}
	osv := version.Version{Major: 10, Minor: 0, Build: 19041, Revision: 0}
	if !pkg.ApplicableTo(FamilyDesktop, osv) {
		t.Error("universal dependency should match any requested family")
	}
	if pkg.ApplicableTo(FamilyDesktop, version.Version{Major: 10, Minor: 0, Build: 10240, Revision: 0}) {
		t.Error("OS below the floor must not be applicable")
	}
}
