package fe3

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/version"
)

type getCookieResponse struct {
	Result *Cookie `xml:"Body>GetCookieResponse>GetCookieResult"`
}

// updateEnvelope is one UpdateInfo/Update element: a numeric server id
// plus an XML fragment carried as escaped text.
type updateEnvelope struct {
	ID  int    `xml:"ID"`
	Xml string `xml:"Xml"`
}

type syncResponse struct {
	NewUpdates []updateEnvelope `xml:"Body>SyncUpdatesResponse>SyncUpdatesResult>NewUpdates>UpdateInfo"`
	Extended   []updateEnvelope `xml:"Body>SyncUpdatesResponse>SyncUpdatesResult>ExtendedUpdateInfo>Updates>Update"`
	NewCookie  *Cookie          `xml:"Body>SyncUpdatesResponse>SyncUpdatesResult>NewCookie"`
}

type extendedInfoResponse struct {
	Locations []fileLocation `xml:"Body>GetExtendedUpdateInfo2Response>GetExtendedUpdateInfo2Result>FileLocations>FileLocation"`
}

type fileLocation struct {
	FileDigest string `xml:"FileDigest"`
	URL        string `xml:"Url"`
}

// identityFragment is the decoded NewUpdates fragment.
type identityFragment struct {
	Identity struct {
		UpdateID       string `xml:"UpdateID,attr"`
		RevisionNumber int    `xml:"RevisionNumber,attr"`
	} `xml:"UpdateIdentity"`
}

// extendedFragment is the decoded ExtendedUpdateInfo fragment carrying
// files, package properties and the applicability blob.
type extendedFragment struct {
	Files []struct {
		FileName string `xml:"FileName,attr"`
		Digest   string `xml:"Digest,attr"`
	} `xml:"Files>File"`
	Properties struct {
		IsAppxFramework     bool   `xml:"IsAppxFramework,attr"`
		PackageIdentityName string `xml:"PackageIdentityName,attr"`
	} `xml:"ExtendedProperties"`
	ApplicabilityBlob string `xml:"ApplicabilityRules>Metadata>AppxPackageMetadata>AppxMetadata>ApplicabilityBlob"`
}

func parseGetCookie(body []byte) (Cookie, error) {
	var resp getCookieResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return Cookie{}, fmt.Errorf("decoding GetCookie response: %w", err)
	}
	if resp.Result == nil || resp.Result.EncryptedData == "" {
		return Cookie{}, &httpx.SchemaError{Field: "GetCookieResult.EncryptedData"}
	}
	return *resp.Result, nil
}

// parseSyncUpdates joins the identity fragments from NewUpdates with the
// file/property fragments from ExtendedUpdateInfo by server id.
// Envelopes without an identity or without files carry categories and
// detection metadata, not installable packages, and are skipped.
func parseSyncUpdates(body []byte) ([]Update, *Cookie, error) {
	var resp syncResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decoding SyncUpdates response: %w", err)
	}

	extended := make(map[int]extendedFragment, len(resp.Extended))
	for _, env := range resp.Extended {
		var frag extendedFragment
		if err := unmarshalFragment(env.Xml, &frag); err != nil {
			continue
		}
		extended[env.ID] = frag
	}

	var updates []Update
	for _, env := range resp.NewUpdates {
		var idFrag identityFragment
		if err := unmarshalFragment(env.Xml, &idFrag); err != nil {
			continue
		}
		if idFrag.Identity.UpdateID == "" {
			continue
		}
		ext, ok := extended[env.ID]
		if !ok {
			continue
		}
		fileName, digest := mainFile(ext)
		if fileName == "" {
			continue
		}
		updates = append(updates, Update{
			UpdateID:            idFrag.Identity.UpdateID,
			RevisionNumber:      idFrag.Identity.RevisionNumber,
			Digest:              digest,
			Version:             versionFromFileName(fileName),
			FileName:            fileName,
			IsFramework:         ext.Properties.IsAppxFramework,
			PackageIdentityName: identityName(ext.Properties.PackageIdentityName),
			TargetPlatforms:     parseApplicabilityBlob(ext.ApplicabilityBlob),
		})
	}
	// Stable output independent of server ordering.
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].FileName < updates[j].FileName
	})
	return updates, resp.NewCookie, nil
}

func parseExtendedInfo(body []byte, u Update) (*PackageDownloadInfo, error) {
	var resp extendedInfoResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding GetExtendedUpdateInfo2 response: %w", err)
	}
	if len(resp.Locations) == 0 {
		return nil, &httpx.SchemaError{Field: "FileLocations"}
	}
	var info PackageDownloadInfo
	for _, loc := range resp.Locations {
		if loc.FileDigest == u.Digest {
			info.Package = DownloadResource{URL: loc.URL, Digest: loc.FileDigest}
		} else if info.BlockmapCab == nil {
			info.BlockmapCab = &DownloadResource{URL: loc.URL, Digest: loc.FileDigest}
		}
	}
	if info.Package.URL == "" {
		return nil, &httpx.SchemaError{Field: "FileLocations.Url"}
	}
	return &info, nil
}

// unmarshalFragment decodes an escaped XML fragment that has no single
// document root.
func unmarshalFragment(frag string, v interface{}) error {
	return xml.Unmarshal([]byte("<fragment>"+frag+"</fragment>"), v)
}

// mainFile picks the installable file of an update, stepping over
// block-map cabinets that occasionally ride along.
func mainFile(ext extendedFragment) (name, digest string) {
	for _, f := range ext.Files {
		lower := strings.ToLower(f.FileName)
		if strings.HasSuffix(lower, ".cab") || strings.HasSuffix(lower, ".blockmap") {
			continue
		}
		return f.FileName, f.Digest
	}
	if len(ext.Files) > 0 {
		return ext.Files[0].FileName, ext.Files[0].Digest
	}
	return "", ""
}

// parseApplicabilityBlob reads content.targetPlatforms out of the JSON
// blob embedded in the update fragment. Keys in the blob contain literal
// dots, hence the escaping.
func parseApplicabilityBlob(blob string) []TargetPlatform {
	if blob == "" {
		return nil
	}
	var out []TargetPlatform
	for _, tp := range gjson.Get(blob, `content\.targetPlatforms`).Array() {
		family, ok := platformFamilies[tp.Get(`platform\.target`).Int()]
		if !ok {
			continue
		}
		out = append(out, TargetPlatform{
			Family:     family,
			MinVersion: version.FromUint64(tp.Get(`platform\.minVersion`).Uint()),
		})
	}
	return out
}
