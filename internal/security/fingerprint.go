package security

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"

	"github.com/mileusna/useragent"
)

// Fingerprinter computes the anti-theft fingerprint bound into every token:
// SHA-256 over the browser signature and the client's IP subnet. Coarse on
// purpose: it survives browser patch updates and DHCP churn inside the
// subnet, while a replay from another device or network produces a different
// hash. Subnet widths are policy, not a hard boundary.
type Fingerprinter struct {
	ipv4Bits int
	ipv6Bits int
}

// NewFingerprinter returns a Fingerprinter using the given prefix widths.
// Out-of-range widths fall back to /24 and /64.
func NewFingerprinter(ipv4Bits, ipv6Bits int) *Fingerprinter {
	if ipv4Bits < 8 || ipv4Bits > 32 {
		ipv4Bits = 24
	}
	if ipv6Bits < 16 || ipv6Bits > 128 {
		ipv6Bits = 64
	}
	return &Fingerprinter{ipv4Bits: ipv4Bits, ipv6Bits: ipv6Bits}
}

// Fingerprint returns the hex SHA-256 of "browserSignature:ipSubnet" for the
// given raw User-Agent and client IP.
func (f *Fingerprinter) Fingerprint(userAgent, ip string) string {
	sig := BrowserSignature(userAgent)
	subnet := f.ipSubnet(ip)
	sum := sha256.Sum256([]byte(sig + ":" + subnet))
	return hex.EncodeToString(sum[:])
}

// BrowserSignature reduces a User-Agent to browser family plus major version
// ("Chrome/120"). The full UA string is deliberately not used: minor version
// bumps must not invalidate sessions.
func BrowserSignature(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "unknown/0"
	}
	ua := useragent.Parse(rawUA)
	// The parser echoes unrecognized tokens back as the name. Only trust a
	// name when the parse also recognized something about the client.
	recognized := ua.Version != "" || ua.OS != "" || ua.Desktop || ua.Mobile || ua.Tablet || ua.Bot
	name := ua.Name
	if name == "" || !recognized {
		name = "unknown"
	}
	major := ua.Version
	if i := strings.IndexByte(major, '.'); i >= 0 {
		major = major[:i]
	}
	if major == "" {
		major = "0"
	}
	return name + "/" + major
}

func (f *Fingerprinter) ipSubnet(ip string) string {
	// Strip a port if one slipped through (RemoteAddr form).
	if host, ok := splitHost(ip); ok {
		ip = host
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "unknown"
	}
	bits := f.ipv6Bits
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = f.ipv4Bits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "unknown"
	}
	return prefix.String()
}

func splitHost(s string) (string, bool) {
	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end > 0 {
			return s[1:end], true
		}
		return "", false
	}
	// Only treat a single colon as host:port; bare IPv6 has several.
	if strings.Count(s, ":") == 1 {
		return s[:strings.IndexByte(s, ':')], true
	}
	return "", false
}
