package security

import "testing"

const chrome120 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
const chrome120Patch = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.225 Safari/537.36"
const firefox121 = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

func TestBrowserSignature(t *testing.T) {
	cases := []struct {
		ua, want string
	}{
		{chrome120, "Chrome/120"},
		{firefox121, "Firefox/121"},
		{"", "unknown/0"},
		{"garbage", "unknown/0"},
		{"%%%%", "unknown/0"},
	}
	for _, tc := range cases {
		if got := BrowserSignature(tc.ua); got != tc.want {
			t.Errorf("BrowserSignature(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestFingerprintStableWithinSubnetAndPatchVersion(t *testing.T) {
	f := NewFingerprinter(24, 64)

	base := f.Fingerprint(chrome120, "203.0.113.10")
	if got := f.Fingerprint(chrome120, "203.0.113.250"); got != base {
		t.Error("fingerprint changed within the same /24")
	}
	if got := f.Fingerprint(chrome120Patch, "203.0.113.10"); got != base {
		t.Error("fingerprint changed on a browser patch update")
	}
}

func TestFingerprintChangesAcrossContext(t *testing.T) {
	f := NewFingerprinter(24, 64)

	base := f.Fingerprint(chrome120, "203.0.113.10")
	if got := f.Fingerprint(chrome120, "198.51.100.10"); got == base {
		t.Error("fingerprint identical across different subnets")
	}
	if got := f.Fingerprint(firefox121, "203.0.113.10"); got == base {
		t.Error("fingerprint identical across different browsers")
	}
}

func TestFingerprintIPv6UsesPrefix(t *testing.T) {
	f := NewFingerprinter(24, 64)

	base := f.Fingerprint(chrome120, "2001:db8:aaaa:bbbb::1")
	if got := f.Fingerprint(chrome120, "2001:db8:aaaa:bbbb:ffff::2"); got != base {
		t.Error("fingerprint changed within the same /64")
	}
	if got := f.Fingerprint(chrome120, "2001:db8:aaaa:cccc::1"); got == base {
		t.Error("fingerprint identical across different /64s")
	}
}

func TestFingerprintHandlesHostPort(t *testing.T) {
	f := NewFingerprinter(24, 64)
	if f.Fingerprint(chrome120, "203.0.113.10:54321") != f.Fingerprint(chrome120, "203.0.113.10") {
		t.Error("port changed the fingerprint")
	}
	if f.Fingerprint(chrome120, "[2001:db8::1]:443") != f.Fingerprint(chrome120, "2001:db8::1") {
		t.Error("bracketed IPv6 port changed the fingerprint")
	}
}

func TestFingerprintConfigurableWidth(t *testing.T) {
	wide := NewFingerprinter(16, 64)
	if wide.Fingerprint(chrome120, "203.0.113.10") != wide.Fingerprint(chrome120, "203.0.200.10") {
		t.Error("/16 fingerprint changed within the same /16")
	}
}
