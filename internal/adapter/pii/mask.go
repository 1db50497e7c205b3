package pii

import "strings"

const (
	// MaskedIPPlaceholder replaces addresses that are not dotted quads.
	MaskedIPPlaceholder = "xxx.xxx.xxx.xxx"

	// MaxUserAgentLength is the number of characters of a user agent kept in logs.
	MaxUserAgentLength = 100
)

// MaskIP hides the host part of an IPv4 address: "203.0.113.42" becomes
// "203.0.113.xxx". Only the number of dot-separated parts is checked, so any
// four-part string is masked the same way. Everything else, IPv6 included,
// collapses to MaskedIPPlaceholder. The boolean is false when ip is empty.
func MaskIP(ip string) (string, bool) {
	if ip == "" {
		return "", false
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return MaskedIPPlaceholder, true
	}
	return strings.Join(parts[:3], ".") + ".xxx", true
}

// TruncateUserAgent keeps at most MaxUserAgentLength characters.
func TruncateUserAgent(ua string) string {
	return truncateString(ua, MaxUserAgentLength)
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
