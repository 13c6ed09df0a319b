package service

import (
	"strings"

	"github.com/mileusna/useragent"
)

// ParseUserAgent classifies a raw User-Agent into browser, OS, and device
// labels for the device list. Best-effort only.
func ParseUserAgent(raw string) (browser, osName, device string) {
	if strings.TrimSpace(raw) == "" {
		return "Unknown", "Unknown", "Unknown"
	}
	ua := useragent.Parse(raw)

	browser = ua.Name
	if browser == "" {
		browser = "Unknown"
	} else if ua.Version != "" {
		major := ua.Version
		if i := strings.IndexByte(major, '.'); i >= 0 {
			major = major[:i]
		}
		browser += " " + major
	}

	osName = ua.OS
	if osName == "" {
		osName = "Unknown"
	}

	switch {
	case ua.Bot:
		device = "Bot"
	case ua.Mobile:
		device = "Mobile"
	case ua.Tablet:
		device = "Tablet"
	case ua.Desktop:
		device = "Desktop"
	default:
		device = "Unknown"
	}
	return browser, osName, device
}
