// Package manifest resolves installers for unpackaged listings from the
// store's package-manifest service.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/version"
)

const defaultBase = "https://storeedgefd.dsx.mp.microsoft.com/v9.0"

// ErrNoInstallerFound means the manifest listed no versions, or the
// selected version listed no installers.
var ErrNoInstallerFound = errors.New("no installer found in package manifest")

// InstallerInfo is the resolved download for an unpackaged listing.
type InstallerInfo struct {
	InstallerURL      string
	FileName          string
	InstallerSwitches string
	Version           string
	InstallerSHA256   string
}

// Client fetches package manifests.
type Client struct {
	http     *httpx.Client
	base     string
	market   string
	language string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithBase overrides the manifest endpoint (tests).
func WithBase(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// New creates a manifest Client over the shared HTTP client.
func New(hc *httpx.Client, market, language string, opts ...Option) *Client {
	c := &Client{http: hc, base: defaultBase, market: market, language: language}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Installer fetches the manifest for a product and picks the best
// version and installer entry for the client's language.
func (c *Client) Installer(ctx context.Context, productID string) (*InstallerInfo, error) {
	u := fmt.Sprintf("%s/packageManifests/%s?Market=%s",
		c.base, url.PathEscape(productID), url.QueryEscape(c.market))
	res, err := c.http.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", productID, err)
	}

	versions := res.Get("Data.Versions").Array()
	if len(versions) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", productID, ErrNoInstallerFound)
	}
	selected := bestVersion(versions)

	installers := selected.Get("Installers").Array()
	if len(installers) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", productID, ErrNoInstallerFound)
	}
	installer := pickInstaller(installers, c.language)

	typ := strings.ToLower(installer.Get("InstallerType").String())
	if typ == "" {
		typ = "exe"
	}
	info := &InstallerInfo{
		InstallerURL:      installer.Get("InstallerUrl").String(),
		FileName:          selected.Get("DefaultLocale.PackageName").String() + "." + typ,
		InstallerSwitches: installer.Get("InstallerSwitches.Silent").String(),
		Version:           selected.Get("PackageVersion").String(),
		InstallerSHA256:   installer.Get("InstallerSha256").String(),
	}
	logrus.Debugf("manifest: %s resolved to %s (%s)", productID, info.FileName, info.Version)
	return info, nil
}

// bestVersion selects the entry whose numeric prefix (text before the
// first space, e.g. "6.6.11 (23272)" → "6.6.11") parses as the greatest
// version; when nothing parses it falls back to the first entry.
func bestVersion(versions []gjson.Result) gjson.Result {
	best := versions[0]
	var bestVer version.Version
	found := false
	for _, v := range versions {
		ver, ok := version.Parse(numericPrefix(v.Get("PackageVersion").String()))
		if !ok {
			continue
		}
		if !found || bestVer.Less(ver) {
			best, bestVer, found = v, ver, true
		}
	}
	return best
}

func numericPrefix(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// pickInstaller takes the first installer whose locale starts with the
// requested language, else the first listed. First match wins; an exact
// market-locale match gets no extra weight.
func pickInstaller(installers []gjson.Result, language string) gjson.Result {
	for _, inst := range installers {
		if localeMatches(inst.Get("InstallerLocale").String(), language) {
			return inst
		}
	}
	return installers[0]
}

// localeMatches compares on the bare language code, so a requested
// "en-us" accepts both "en-US" and "en-GB" installers.
func localeMatches(locale, language string) bool {
	code, _, _ := strings.Cut(language, "-")
	return code != "" && strings.HasPrefix(strings.ToLower(locale), strings.ToLower(code))
}
