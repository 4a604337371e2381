// Package catalog normalizes the store's inconsistent upstream payload
// shapes into one canonical product model.
package catalog

import (
	"strings"

	"github.com/mjishnu/StoreListings/internal/version"
)

// InstallerType is the closed set of delivery mechanisms a listing can
// declare. Unknown blocks dependency resolution.
type InstallerType int

const (
	InstallerUnknown InstallerType = iota
	InstallerPackaged
	InstallerUnpackaged
)

func (t InstallerType) String() string {
	switch t {
	case InstallerPackaged:
		return "packaged"
	case InstallerUnpackaged:
		return "unpackaged"
	default:
		return "unknown"
	}
}

// installerTypeFromTag maps the raw upstream type tag. The match is
// case-sensitive: these are the exact tags the product payload emits.
func installerTypeFromTag(tag string) InstallerType {
	switch tag {
	case "WindowsUpdate":
		return InstallerPackaged
	case "WPM", "DirectInstall":
		return InstallerUnpackaged
	default:
		return InstallerUnknown
	}
}

// DeviceFamily is the OS target class packages declare applicability for.
type DeviceFamily string

const (
	FamilyUniversal   DeviceFamily = "Windows.Universal"
	FamilyDesktop     DeviceFamily = "Windows.Desktop"
	FamilyMobile      DeviceFamily = "Windows.Mobile"
	FamilyXbox        DeviceFamily = "Windows.Xbox"
	FamilyTeam        DeviceFamily = "Windows.Team"
	FamilyHolographic DeviceFamily = "Windows.Holographic"
	FamilyCore        DeviceFamily = "Windows.Core"
)

// Matches reports whether a package declared for family d applies to the
// requested family: exact match or the universal family.
func (d DeviceFamily) Matches(requested DeviceFamily) bool {
	return strings.EqualFold(string(d), string(requested)) ||
		strings.EqualFold(string(d), string(FamilyUniversal))
}

// Architecture is a package CPU target.
type Architecture string

const (
	ArchX64   Architecture = "x64"
	ArchX86   Architecture = "x86"
	ArchARM   Architecture = "arm"
	ArchARM64 Architecture = "arm64"
)

// fallbackOrder lists, per requested architecture, which architecture
// entries may satisfy it, most preferred first.
var fallbackOrder = map[Architecture][]Architecture{
	ArchARM64: {ArchARM64, ArchARM, ArchX64, ArchX86},
	ArchX64:   {ArchX64, ArchX86},
	ArchX86:   {ArchX86},
	ArchARM:   {ArchARM},
}

// Image is one catalog-hosted image. BackgroundColor is either a
// #-prefixed hex string or "Transparent", never empty.
type Image struct {
	URL             string
	BackgroundColor string
	Height          int64
	Width           int64
}

// PlaceholderImage stands in when a listing carries no usable image, so
// every Card and Product always has exactly one logo.
var PlaceholderImage = Image{BackgroundColor: "Transparent"}

// Card is a lightweight listing entry from search, suggestion,
// recommendation and bundle results.
type Card struct {
	ProductID     string
	Title         string
	DisplayPrice  string
	AverageRating float64
	InstallerType InstallerType
	Image         Image
}

// Product is the canonical detail entity. It is immutable once built
// from a single resolution call.
type Product struct {
	ProductID         string
	Title             string
	ShortDescription  string
	Description       string
	PublisherName     string
	RevisionID        string
	Logo              Image
	Screenshots       []Image
	Rating            *float64
	RatingCount       *int64
	Size              *int64
	InstallerType     InstallerType
	IsBundle          bool
	PackageFamilyName string
	Version           string
}

// PlatformDependency is a compatibility floor for one device family.
type PlatformDependency struct {
	PlatformFamily DeviceFamily
	MinVersion     version.Version
}

// FrameworkDependency is a shared-runtime package required at or above a
// minimum version.
type FrameworkDependency struct {
	PackageIdentity string
	MinVersion      version.Version
}

// Package is one packaging target from the display catalog. It carries
// the parent product's identity plus everything dependency resolution
// needs.
type Package struct {
	ProductID             string
	Title                 string
	PackageFullName       string
	PackageIdentityName   string
	PackageFamilyName     string
	WuCategoryID          string
	AppVersion            version.Version
	Architecture          Architecture
	PlatformDependencies  []PlatformDependency
	FrameworkDependencies []FrameworkDependency
}

// ApplicableTo reports whether any platform dependency admits the
// requested family at the given OS version.
func (p Package) ApplicableTo(family DeviceFamily, osVersion version.Version) bool {
	for _, dep := range p.PlatformDependencies {
		if dep.PlatformFamily.Matches(family) && osVersion.AtLeast(dep.MinVersion) {
			return true
		}
	}
	return false
}
