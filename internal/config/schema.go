package config

import "runtime"

// Config is the top-level storelistings configuration.
type Config struct {
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// DefaultsConfig holds the market, locale and device identity sent with
// every catalog request.
type DefaultsConfig struct {
	Market       string `mapstructure:"market"`
	Language     string `mapstructure:"language"`
	DeviceFamily string `mapstructure:"device_family"`
	Architecture string `mapstructure:"architecture"`
	DownloadDir  string `mapstructure:"download_dir"`
}

// SyncConfig holds the OS identity presented to the update sync service.
type SyncConfig struct {
	Branch              string `mapstructure:"branch"`
	FlightRing          string `mapstructure:"flight_ring"`
	FlightingBranchName string `mapstructure:"flighting_branch_name"`
	OSVersion           string `mapstructure:"os_version"`
}

// EndpointsConfig allows pointing the client at alternate upstreams,
// mainly for testing against capture proxies.
type EndpointsConfig struct {
	EdgeBase     string `mapstructure:"edge_base"`
	CatalogBase  string `mapstructure:"catalog_base"`
	ManifestBase string `mapstructure:"manifest_base"`
	SyncEndpoint string `mapstructure:"sync_endpoint"`
}

// HTTPConfig holds transport-level settings.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// EffectiveArchitecture returns the configured architecture or the one
// matching the running host.
func (d DefaultsConfig) EffectiveArchitecture() string {
	if d.Architecture != "" {
		return d.Architecture
	}
	return hostArchitecture()
}

// EffectiveDownloadDir returns the configured download directory or the
// current directory.
func (d DefaultsConfig) EffectiveDownloadDir() string {
	if d.DownloadDir != "" {
		return ExpandHome(d.DownloadDir)
	}
	return "."
}

func hostArchitecture() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm"
	default:
		return "x64"
	}
}
