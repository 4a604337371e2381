package app

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mjishnu/StoreListings/internal/catalog"
	"github.com/mjishnu/StoreListings/internal/config"
	"github.com/mjishnu/StoreListings/internal/fe3"
	"github.com/mjishnu/StoreListings/internal/httpx"
	"github.com/mjishnu/StoreListings/internal/manifest"
	"github.com/mjishnu/StoreListings/internal/util"
)

var (
	cfg   *config.Config
	hc    *httpx.Client
	store *catalog.Client
	mfc   *manifest.Client
	syncc *fe3.Client

	appVersion = "dev"

	flagNoColor  bool
	flagVerbose  bool
	flagConfig   string
	flagMarket   string
	flagLanguage string
	flagFamily   string
	flagArch     string
)

var rootCmd = &cobra.Command{
	Use:   "storelistings",
	Short: "Query Microsoft Store listings, packages and download links",
	Long: `storelistings resolves Microsoft Store listings without a Store client.

It normalizes product metadata across the store edge and display catalog
services, looks up unpackaged installers from package manifests, and
drives the update sync protocol to produce dependency-complete download
links for packaged apps.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion records the binary version injected at build time.
func SetVersion(v string) {
	if v != "" {
		appVersion = v
	}
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/storelistings/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagMarket, "market", "", "Store market, e.g. US")
	rootCmd.PersistentFlags().StringVar(&flagLanguage, "language", "", "Listing language, e.g. en-us")
	rootCmd.PersistentFlags().StringVar(&flagFamily, "device-family", "", "Device family, e.g. Windows.Desktop")
	rootCmd.PersistentFlags().StringVar(&flagArch, "arch", "", "Package architecture: x64, x86, arm, arm64")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		util.InitColor(flagNoColor)
		logrus.SetLevel(logrus.WarnLevel)
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		if flagConfig != "" {
			os.Setenv("STORELISTINGS_CONFIG", flagConfig)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		applyFlagOverrides()

		httpOpts := []httpx.Option{
			httpx.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
			}),
		}
		if cfg.HTTP.UserAgent != "" {
			httpOpts = append(httpOpts, httpx.WithUserAgent(cfg.HTTP.UserAgent))
		}
		hc = httpx.New(httpOpts...)

		var catOpts []catalog.Option
		if cfg.Endpoints.EdgeBase != "" {
			catOpts = append(catOpts, catalog.WithEdgeBase(cfg.Endpoints.EdgeBase))
		}
		if cfg.Endpoints.CatalogBase != "" {
			catOpts = append(catOpts, catalog.WithCatalogBase(cfg.Endpoints.CatalogBase))
		}
		store = catalog.New(hc, selector(), catOpts...)

		var mfOpts []manifest.Option
		if cfg.Endpoints.ManifestBase != "" {
			mfOpts = append(mfOpts, manifest.WithBase(cfg.Endpoints.ManifestBase))
		}
		mfc = manifest.New(hc, cfg.Defaults.Market, cfg.Defaults.Language, mfOpts...)

		var syncOpts []fe3.Option
		if cfg.Endpoints.SyncEndpoint != "" {
			syncOpts = append(syncOpts, fe3.WithEndpoint(cfg.Endpoints.SyncEndpoint))
		}
		syncc = fe3.New(hc, syncOpts...)
		return nil
	}

	rootCmd.AddCommand(
		newProductCmd(),
		newPackagesCmd(),
		newSearchCmd(),
		newSuggestCmd(),
		newFeaturedCmd(),
		newInstallerCmd(),
		newDownloadCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

// applyFlagOverrides lets per-invocation flags win over the config file.
func applyFlagOverrides() {
	if flagMarket != "" {
		cfg.Defaults.Market = flagMarket
	}
	if flagLanguage != "" {
		cfg.Defaults.Language = flagLanguage
	}
	if flagFamily != "" {
		cfg.Defaults.DeviceFamily = flagFamily
	}
	if flagArch != "" {
		cfg.Defaults.Architecture = flagArch
	}
}

func selector() catalog.Selector {
	return catalog.Selector{
		Market:   cfg.Defaults.Market,
		Language: cfg.Defaults.Language,
		Family:   catalog.DeviceFamily(cfg.Defaults.DeviceFamily),
		Arch:     catalog.Architecture(cfg.Defaults.EffectiveArchitecture()),
	}
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Println(color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Println(color.CyanString(fmt.Sprintf(format, a...)))
}
