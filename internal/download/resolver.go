// Package download resolves a dependency-complete set of downloadable
// files for a packaged listing by combining catalog package metadata
// with the distribution-sync protocol.
package download

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mjishnu/StoreListings/internal/catalog"
	"github.com/mjishnu/StoreListings/internal/fe3"
	"github.com/mjishnu/StoreListings/internal/httpx"
)

// ErrNoApplicablePackage means no catalog package admits the requested
// device family at the requested OS version.
var ErrNoApplicablePackage = errors.New("no applicable package for the requested device")

// defaultConcurrency bounds the per-update download-info calls.
const defaultConcurrency = 4

// Item is one resolved file: an update plus its download locations.
type Item struct {
	Update   fe3.Update
	Download fe3.PackageDownloadInfo
}

// Group is one installable set: a main package and the framework
// dependency files it needs. Either all dependencies resolved or the
// main package is not emitted at all.
type Group struct {
	Main         Item
	Dependencies []Item
}

// PackageLister is the slice of the catalog client the resolver needs.
type PackageLister interface {
	Packages(ctx context.Context, productID string, includeNeutralLocale bool) ([]catalog.Package, error)
}

// SyncClient is the three-stage protocol surface the resolver drives.
type SyncClient interface {
	GetCookie(ctx context.Context) (fe3.Cookie, error)
	SyncUpdates(ctx context.Context, cookie fe3.Cookie, categoryID string, osd fe3.OSDescriptor) ([]fe3.Update, fe3.Cookie, error)
	DownloadInfo(ctx context.Context, cookie fe3.Cookie, u fe3.Update, osd fe3.OSDescriptor) (*fe3.PackageDownloadInfo, error)
}

// Resolver orchestrates the catalog and the sync protocol.
type Resolver struct {
	catalog     PackageLister
	sync        SyncClient
	concurrency int
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithConcurrency overrides the download-info worker bound.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver builds a Resolver over already-constructed clients.
func NewResolver(cat PackageLister, sync SyncClient, opts ...Option) *Resolver {
	r := &Resolver{catalog: cat, sync: sync, concurrency: defaultConcurrency}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve produces the dependency-complete download groups for one
// packaged listing, ordered by descending main-package version. An
// empty slice with a nil error means the sync found nothing usable; the
// caller decides how to present that.
func (r *Resolver) Resolve(ctx context.Context, productID string, osd fe3.OSDescriptor) ([]Group, error) {
	pkgs, err := r.catalog.Packages(ctx, productID, true)
	if err != nil {
		return nil, err
	}
	applicable := applicablePackages(pkgs, osd)
	if len(applicable) == 0 {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNoApplicablePackage)
	}
	categoryID := applicable[0].WuCategoryID
	if categoryID == "" {
		return nil, fmt.Errorf("product %s: %w", productID, &httpx.SchemaError{Field: "FulfillmentData.WuCategoryId"})
	}

	cookie, err := r.sync.GetCookie(ctx)
	if err != nil {
		return nil, err
	}
	updates, cookie, err := r.sync.SyncUpdates(ctx, cookie, categoryID, osd)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return []Group{}, nil
	}

	items, err := r.fetchDownloadInfo(ctx, cookie, updates, osd)
	if err != nil {
		return nil, err
	}

	var mains, frameworks []Item
	for _, it := range items {
		if it.Update.IsFramework {
			frameworks = append(frameworks, it)
		} else {
			mains = append(mains, it)
		}
	}

	groups := make([]Group, 0, len(mains))
	for _, main := range mains {
		if !main.Update.CompatibleWith(osd.Family, osd.OSVersion) {
			continue
		}
		deps, ok := resolveDependencies(main.Update, applicable, frameworks, osd)
		if !ok {
			logrus.Warnf("download: dropping %s %s: unresolved dependencies",
				main.Update.PackageIdentityName, main.Update.Version)
			continue
		}
		groups = append(groups, Group{Main: main, Dependencies: deps})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[j].Main.Update.Version.Less(groups[i].Main.Update.Version)
	})
	return groups, nil
}

// fetchDownloadInfo resolves every update's file locations with a
// bounded worker pool. Results stay correlated to their update by
// travelling together; the first failure aborts the whole fetch.
func (r *Resolver) fetchDownloadInfo(ctx context.Context, cookie fe3.Cookie, updates []fe3.Update, osd fe3.OSDescriptor) ([]Item, error) {
	items := make([]Item, len(updates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, u := range updates {
		i, u := i, u
		g.Go(func() error {
			info, err := r.sync.DownloadInfo(gctx, cookie, u, osd)
			if err != nil {
				return err
			}
			items[i] = Item{Update: u, Download: *info}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// applicablePackages keeps the packages admitting the requested family
// and OS version.
func applicablePackages(pkgs []catalog.Package, osd fe3.OSDescriptor) []catalog.Package {
	var out []catalog.Package
	for _, p := range pkgs {
		if p.ApplicableTo(osd.Family, osd.OSVersion) {
			out = append(out, p)
		}
	}
	return out
}

// resolveDependencies finds the catalog package matching the main update
// by identity name and exact version, then picks the best framework
// group per declared dependency. A main update with no catalog match is
// treated as having unresolved dependencies, not as dependency-free.
func resolveDependencies(main fe3.Update, pkgs []catalog.Package, frameworks []Item, osd fe3.OSDescriptor) ([]Item, bool) {
	pkg, ok := matchPackage(main, pkgs)
	if !ok {
		return nil, false
	}
	var deps []Item
	seen := map[string]bool{}
	for _, dep := range pkg.FrameworkDependencies {
		group := bestFrameworkGroup(dep, frameworks, osd)
		if len(group) == 0 {
			return nil, false
		}
		for _, it := range group {
			key := fmt.Sprintf("%s#%d", it.Update.UpdateID, it.Update.RevisionNumber)
			if !seen[key] {
				seen[key] = true
				deps = append(deps, it)
			}
		}
	}
	return deps, true
}

func matchPackage(main fe3.Update, pkgs []catalog.Package) (catalog.Package, bool) {
	for _, p := range pkgs {
		if strings.EqualFold(p.PackageIdentityName, main.PackageIdentityName) &&
			p.AppVersion == main.Version {
			return p, true
		}
	}
	return catalog.Package{}, false
}

// bestFrameworkGroup returns every framework file at the highest
// qualifying version for one dependency: identity match, version at
// least the declared minimum, platform-compatible. A dependency package
// may ship several files at one version; the whole group is kept.
func bestFrameworkGroup(dep catalog.FrameworkDependency, frameworks []Item, osd fe3.OSDescriptor) []Item {
	var qualified []Item
	for _, it := range frameworks {
		if !strings.EqualFold(it.Update.PackageIdentityName, identityName(dep.PackageIdentity)) {
			continue
		}
		if !it.Update.Version.AtLeast(dep.MinVersion) {
			continue
		}
		if !it.Update.CompatibleWith(osd.Family, osd.OSVersion) {
			continue
		}
		qualified = append(qualified, it)
	}
	if len(qualified) == 0 {
		return nil
	}
	best := qualified[0].Update.Version
	for _, it := range qualified[1:] {
		if best.Less(it.Update.Version) {
			best = it.Update.Version
		}
	}
	group := qualified[:0:0]
	for _, it := range qualified {
		if it.Update.Version == best {
			group = append(group, it)
		}
	}
	return group
}

// identityName tolerates dependency identities that still carry a
// publisher-hash suffix.
func identityName(s string) string {
	name, _, _ := strings.Cut(s, "_")
	return name
}
