// Package fe3 speaks the store's stateful distribution-sync protocol:
// acquire a session cookie, sync the updates of one category, then
// resolve per-update download locations.
package fe3

import (
	"strings"

	"github.com/mjishnu/StoreListings/internal/catalog"
	"github.com/mjishnu/StoreListings/internal/version"
)

// Cookie is the opaque session credential threaded through the protocol.
// SyncUpdates may hand back a refreshed one.
type Cookie struct {
	EncryptedData string `xml:"EncryptedData"`
	Expiration    string `xml:"Expiration"`
}

// OSDescriptor is the device target the sync call filters updates for.
type OSDescriptor struct {
	Branch              string
	FlightRing          string
	FlightingBranchName string
	OSVersion           version.Version
	Family              catalog.DeviceFamily
	Language            string
	Market              string
}

// TargetPlatform is one applicability entry declared by an update.
type TargetPlatform struct {
	Family     catalog.DeviceFamily
	MinVersion version.Version
}

// Update is one applicable update returned by SyncUpdates.
type Update struct {
	UpdateID            string
	RevisionNumber      int
	Digest              string
	Version             version.Version
	FileName            string
	IsFramework         bool
	PackageIdentityName string
	TargetPlatforms     []TargetPlatform
}

// CompatibleWith reports whether any declared target platform admits the
// requested family at the given OS version. Updates without an
// applicability blob declare nothing and are not ruled out.
func (u Update) CompatibleWith(family catalog.DeviceFamily, osVersion version.Version) bool {
	if len(u.TargetPlatforms) == 0 {
		return true
	}
	for _, tp := range u.TargetPlatforms {
		if tp.Family.Matches(family) && osVersion.AtLeast(tp.MinVersion) {
			return true
		}
	}
	return false
}

// DownloadResource is one downloadable file.
type DownloadResource struct {
	URL    string
	Digest string
}

// PackageDownloadInfo is one update's resolved download locations: the
// package itself plus, when present, its block-map cabinet.
type PackageDownloadInfo struct {
	Package     DownloadResource
	BlockmapCab *DownloadResource
}

// platformFamilies maps the applicability blob's platform.target codes
// to device families. Codes outside the table are dropped.
var platformFamilies = map[int64]catalog.DeviceFamily{
	0:  catalog.FamilyUniversal,
	3:  catalog.FamilyDesktop,
	4:  catalog.FamilyMobile,
	5:  catalog.FamilyXbox,
	6:  catalog.FamilyTeam,
	10: catalog.FamilyHolographic,
	16: catalog.FamilyCore,
}

// versionFromFileName digs the version out of a package file name like
// Contoso.App_2.0.1.0_x64__8wekyb3d8bbwe.appx.
func versionFromFileName(name string) version.Version {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return version.Version{}
	}
	v, _ := version.Parse(parts[1])
	return v
}

// identityName strips the publisher-hash suffix from the protocol's
// package identity, e.g. "Contoso.App_8wekyb3d8bbwe" → "Contoso.App".
func identityName(s string) string {
	name, _, _ := strings.Cut(s, "_")
	return name
}
