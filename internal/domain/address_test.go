package domain

import "testing"

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0x86fBaEB3D6b5247F420590D303a6ffC9cd523790", true},
		{"0x46cba1e9b1e5db32da28428f2fb85587bcb785e7", true},
		{"0x46cba1e9b1e5db32da28428f2fb85587bcb785e", false},  // 39 hex chars
		{"0x46cba1e9b1e5db32da28428f2fb85587bcb785e71", false}, // 41 hex chars
		{"46cba1e9b1e5db32da28428f2fb85587bcb785e7ab", false},  // missing 0x
		{"0xZZcba1e9b1e5db32da28428f2fb85587bcb785e7", false},  // non-hex
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidAddress(tt.addr); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestShortAddress(t *testing.T) {
	got := ShortAddress("0x86fBaEB3D6b5247F420590D303a6ffC9cd523790")
	if got != "0x86fB…3790" {
		t.Errorf("ShortAddress = %q", got)
	}
	if got := ShortAddress("0x1234"); got != "0x1234" {
		t.Errorf("short input should pass through, got %q", got)
	}
}

func TestChainName(t *testing.T) {
	if got := ChainName("eth"); got != "Ethereum" {
		t.Errorf("ChainName(eth) = %q", got)
	}
	if got := ChainName("newchain"); got != "newchain" {
		t.Errorf("unknown id should pass through, got %q", got)
	}
	if n := len(SupportedChainIDs()); n != 19 {
		t.Errorf("SupportedChainIDs() returned %d ids, want 19", n)
	}
}
