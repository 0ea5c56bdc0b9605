package domain

import "regexp"

// addressRe matches a canonical 42-character EVM address.
var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a well-formed EVM wallet address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// ShortAddress abbreviates an address for warnings and table cells
// ("0x86fB…3790"). Inputs too short to abbreviate pass through unchanged.
func ShortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
