package catalog

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/version"
)

// selectEnvelope picks the payload to normalize out of a response. Some
// endpoints answer with a single {"Payload": …} object, others with an
// array of such envelopes covering related products; in the array case
// the first envelope whose payload matches the requested id wins, and an
// id-less response falls back to the last envelope.
func selectEnvelope(res gjson.Result, productID string) (gjson.Result, error) {
	if !res.IsArray() {
		if p := res.Get("Payload"); p.Exists() {
			return p, nil
		}
		return res, nil
	}
	envelopes := res.Array()
	if len(envelopes) == 0 {
		return gjson.Result{}, &httpx.SchemaError{Field: "Payload"}
	}
	for _, env := range envelopes {
		p := payloadOf(env)
		if strings.EqualFold(p.Get("ProductId").String(), productID) {
			return p, nil
		}
	}
	return payloadOf(envelopes[len(envelopes)-1]), nil
}

func payloadOf(env gjson.Result) gjson.Result {
	if p := env.Get("Payload"); p.Exists() {
		return p
	}
	return env
}

func imageFromJSON(j gjson.Result) Image {
	return Image{
		URL:             j.Get("Url").String(),
		BackgroundColor: acceptColor(j.Get("BackgroundColor").String()),
		Height:          j.Get("Height").Int(),
		Width:           j.Get("Width").Int(),
	}
}

// acceptColor only trusts #-prefixed hex strings; everything else the
// upstream puts here ("transparent", empty, named colors) collapses to
// the Transparent sentinel.
func acceptColor(s string) string {
	if strings.HasPrefix(s, "#") {
		return s
	}
	return "Transparent"
}

// cardImage picks the listing tile image: the last 300×300 image wins,
// otherwise the first image, otherwise the placeholder.
func cardImage(images []gjson.Result) Image {
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].Get("Height").Int() == 300 && images[i].Get("Width").Int() == 300 {
			return imageFromJSON(images[i])
		}
	}
	if len(images) > 0 {
		return imageFromJSON(images[0])
	}
	return PlaceholderImage
}

func isScreenshotTag(tag string) bool {
	return strings.EqualFold(tag, "screenshot")
}

func isLogoTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "logo", "icon", "poster", "boxart":
		return true
	default:
		return false
	}
}

// splitImages classifies a product's image list into logo candidates and
// screenshots by type tag; other tags are ignored.
func splitImages(images []gjson.Result) (logos []gjson.Result, screenshots []Image) {
	for _, img := range images {
		tag := img.Get("ImageType").String()
		switch {
		case isScreenshotTag(tag):
			screenshots = append(screenshots, imageFromJSON(img))
		case isLogoTag(tag):
			logos = append(logos, img)
		}
	}
	return logos, screenshots
}

// pickLogo resolves the product detail logo among the logo candidates:
// last 100×100, else the largest square, else the first candidate, else
// the placeholder.
func pickLogo(logos []gjson.Result) Image {
	for i := len(logos) - 1; i >= 0; i-- {
		if logos[i].Get("Height").Int() == 100 && logos[i].Get("Width").Int() == 100 {
			return imageFromJSON(logos[i])
		}
	}
	var best gjson.Result
	var bestSide int64 = -1
	for _, img := range logos {
		h, w := img.Get("Height").Int(), img.Get("Width").Int()
		if h == w && h > bestSide {
			best, bestSide = img, h
		}
	}
	if bestSide >= 0 {
		return imageFromJSON(best)
	}
	if len(logos) > 0 {
		return imageFromJSON(logos[0])
	}
	return PlaceholderImage
}

const shortDescriptionLimit = 150

// deriveShortDescription returns the explicit short description when the
// upstream provides one, and otherwise truncates the full description:
// at the first period if any, else at the first line break, else hard at
// 150 characters with an ellipsis.
func deriveShortDescription(short, full string) string {
	if short != "" {
		return short
	}
	if full == "" {
		return ""
	}
	if i := strings.IndexByte(full, '.'); i >= 0 {
		return full[:i+1]
	}
	if i := strings.IndexByte(full, '\n'); i >= 0 {
		return strings.TrimRight(full[:i], "\r")
	}
	if r := []rune(full); len(r) > shortDescriptionLimit {
		return string(r[:shortDescriptionLimit]) + "…"
	}
	return full
}

// resolveVersion prefers the payload's top-level version; for unpackaged
// items it falls back to scanning the architecture-keyed dependency map
// in the order the requested architecture can be satisfied.
func resolveVersion(payload gjson.Result, installer InstallerType, arch Architecture) string {
	if v := payload.Get("Version").String(); v != "" {
		return v
	}
	if installer != InstallerUnpackaged {
		return ""
	}
	deps := payload.Get("Installer.Dependencies")
	for _, candidate := range fallbackOrder[arch] {
		if v := deps.Get(string(candidate) + ".Version").String(); v != "" {
			return v
		}
	}
	return ""
}

func floatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func intPtr(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

// productFromPayload builds the canonical Product from a store edge
// payload. Only ProductId and Title are mandatory; every cosmetic field
// degrades to a documented default.
func productFromPayload(payload gjson.Result, arch Architecture) (*Product, error) {
	id := payload.Get("ProductId").String()
	if id == "" {
		return nil, &httpx.SchemaError{Field: "ProductId"}
	}
	title := payload.Get("Title").String()
	if title == "" {
		return nil, &httpx.SchemaError{Field: "Title"}
	}

	images := payload.Get("Images").Array()
	logos, screenshots := splitImages(images)

	installer := installerTypeFromTag(payload.Get("Installer.Type").String())
	full := payload.Get("Description").String()

	return &Product{
		ProductID:         id,
		Title:             title,
		ShortDescription:  deriveShortDescription(payload.Get("ShortDescription").String(), full),
		Description:       full,
		PublisherName:     payload.Get("PublisherName").String(),
		RevisionID:        payload.Get("RevisionId").String(),
		Logo:              pickLogo(logos),
		Screenshots:       screenshots,
		Rating:            floatPtr(payload.Get("AverageRating").Float()),
		RatingCount:       intPtr(payload.Get("RatingCount").Int()),
		Size:              intPtr(payload.Get("ApproximateSizeInBytes").Int()),
		InstallerType:     installer,
		IsBundle:          len(payload.Get("Skus.0.BundledSkus").Array()) > 0,
		PackageFamilyName: payload.Get("PackageFamilyName").String(),
		Version:           resolveVersion(payload, installer, arch),
	}, nil
}

// cardFromJSON builds a listing Card. Cards keep a zero rating as-is;
// rating is not optional in listing contexts.
func cardFromJSON(j gjson.Result) (Card, bool) {
	id := j.Get("ProductId").String()
	title := j.Get("Title").String()
	if id == "" || title == "" {
		return Card{}, false
	}
	return Card{
		ProductID:     id,
		Title:         title,
		DisplayPrice:  j.Get("DisplayPrice").String(),
		AverageRating: j.Get("AverageRating").Float(),
		InstallerType: installerTypeFromTag(j.Get("Installer.Type").String()),
		Image:         cardImage(j.Get("Images").Array()),
	}, true
}

// packagesFromProduct extracts Package entries from one display catalog
// product envelope. ProductId is mandatory here just as it is for the
// detail normalizer.
func packagesFromProduct(env gjson.Result) ([]Package, error) {
	productID := env.Get("ProductId").String()
	if productID == "" {
		return nil, &httpx.SchemaError{Field: "ProductId"}
	}
	title := env.Get("LocalizedProperties.0.ProductTitle").String()

	raw := env.Get("DisplaySkuAvailabilities.0.Sku.Properties.Packages").Array()
	pkgs := make([]Package, 0, len(raw))
	for _, rp := range raw {
		fullName := rp.Get("PackageFullName").String()
		name, fnVersion, fnArch := splitPackageFullName(fullName)

		appVersion := version.FromUint64(rp.Get("Version").Uint())
		if appVersion.IsZero() {
			appVersion = fnVersion
		}
		arch := Architecture(strings.ToLower(rp.Get("Architectures.0").String()))
		if arch == "" {
			arch = fnArch
		}

		// FulfillmentData is a JSON document embedded as a string.
		fulfillment := gjson.Parse(rp.Get("FulfillmentData").String())

		pkg := Package{
			ProductID:           productID,
			Title:               title,
			PackageFullName:     fullName,
			PackageIdentityName: name,
			PackageFamilyName:   fulfillment.Get("PackageFamilyName").String(),
			WuCategoryID:        fulfillment.Get("WuCategoryId").String(),
			AppVersion:          appVersion,
			Architecture:        arch,
		}
		for _, pd := range rp.Get("PlatformDependencies").Array() {
			pkg.PlatformDependencies = append(pkg.PlatformDependencies, PlatformDependency{
				PlatformFamily: DeviceFamily(pd.Get("PlatformName").String()),
				MinVersion:     version.FromUint64(pd.Get("MinVersion").Uint()),
			})
		}
		for _, fd := range rp.Get("FrameworkDependencies").Array() {
			pkg.FrameworkDependencies = append(pkg.FrameworkDependencies, FrameworkDependency{
				PackageIdentity: fd.Get("PackageIdentity").String(),
				MinVersion:      version.FromUint64(fd.Get("MinVersion").Uint()),
			})
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// splitPackageFullName decomposes Name_Version_Arch__PublisherHash.
func splitPackageFullName(fullName string) (name string, ver version.Version, arch Architecture) {
	parts := strings.Split(fullName, "_")
	if len(parts) > 0 {
		name = parts[0]
	}
	if len(parts) > 1 {
		ver, _ = version.Parse(parts[1])
	}
	if len(parts) > 2 {
		arch = Architecture(strings.ToLower(parts[2]))
	}
	return name, ver, arch
}
