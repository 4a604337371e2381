package app

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/mjishnu/StoreListings/internal/catalog"
	"github.com/mjishnu/StoreListings/internal/fe3"
	"github.com/mjishnu/StoreListings/internal/version"
)

func printField(label, value string) {
	fmt.Printf("  %-14s %s\n", color.CyanString(label+":"), value)
}

// osDescriptor assembles the device identity sent to the sync service
// from config plus any command-level overrides.
func osDescriptor(osVersion, flightRing, branch string) (fe3.OSDescriptor, error) {
	raw := cfg.Sync.OSVersion
	if osVersion != "" {
		raw = osVersion
	}
	v, okV := version.Parse(raw)
	if !okV {
		return fe3.OSDescriptor{}, fmt.Errorf("invalid OS version %q", raw)
	}
	osd := fe3.OSDescriptor{
		Branch:              cfg.Sync.Branch,
		FlightRing:          cfg.Sync.FlightRing,
		FlightingBranchName: cfg.Sync.FlightingBranchName,
		OSVersion:           v,
		Family:              catalog.DeviceFamily(cfg.Defaults.DeviceFamily),
		Language:            cfg.Defaults.Language,
		Market:              cfg.Defaults.Market,
	}
	if flightRing != "" {
		osd.FlightRing = flightRing
	}
	if branch != "" {
		osd.Branch = branch
	}
	return osd, nil
}

func printCards(cards []catalog.Card) {
	for _, c := range cards {
		rating := ""
		if c.AverageRating > 0 {
			rating = fmt.Sprintf("  %.1f★", c.AverageRating)
		}
		price := c.DisplayPrice
		if price == "" {
			price = "-"
		}
		fmt.Printf("  %-14s  %-40s %-10s %s%s\n",
			color.WhiteString(c.ProductID),
			truncate(c.Title, 40),
			price,
			c.InstallerType,
			rating,
		)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n := n / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
