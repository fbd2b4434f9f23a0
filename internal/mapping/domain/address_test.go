package mapping

import "testing"

func TestNormalizeFixedWidth(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"E999", "E0999"},
		{"E9", "E0009"},
		{"E0999", "E0999"},
		{"E999.03", "E0999.03"},
		{"D200", "D200"},
		{"1100", "1100"},
		{"W100", "W100"},
		{"E", "E"},
	}
	for _, tc := range cases {
		if got := NormalizeFixedWidth(tc.in); got != tc.want {
			t.Errorf("NormalizeFixedWidth(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeBoolean_NoDotDenotesBitZero(t *testing.T) {
	cases := []string{"1100", "E0999", "H5"}
	for _, addr := range cases {
		got := NormalizeBoolean(addr)
		if got != addr+".00" {
			t.Errorf("NormalizeBoolean(%q) = %q, want %q", addr, got, addr+".00")
		}
	}
}

func TestNormalizeBoolean_FractionPadding(t *testing.T) {
	// The padding is textual: a one-character fraction fills the two-digit
	// field by appending a zero, so .1 denotes bit 10.
	cases := []struct {
		in   string
		want string
	}{
		{"1100.1", "1100.10"},
		{"1100.10", "1100.10"},
		{"1100.03", "1100.03"},
		{"E0999.3", "E0999.30"},
	}
	for _, tc := range cases {
		if got := NormalizeBoolean(tc.in); got != tc.want {
			t.Errorf("NormalizeBoolean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitBoolean(t *testing.T) {
	base, bit := SplitBoolean("E0999.03")
	if base != "E0999" || bit != 3 {
		t.Fatalf("SplitBoolean(E0999.03) = %q, %d", base, bit)
	}
	base, bit = SplitBoolean("1100")
	if base != "1100" || bit != 0 {
		t.Fatalf("SplitBoolean(1100) = %q, %d", base, bit)
	}
}

func TestClassifyArea(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1100", "A"},
		{"", "A"},
		{"D200", "D"},
		{"e999", "E"},
		{"w100", "W"},
	}
	for _, tc := range cases {
		if got := ClassifyArea(tc.in); got != tc.want {
			t.Errorf("ClassifyArea(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsSupportedArea(t *testing.T) {
	supported := []string{"1100", "0", "D200", "E999", "W100", "H5", "d200"}
	for _, addr := range supported {
		if !IsSupportedArea(addr) {
			t.Errorf("IsSupportedArea(%q) = false, want true", addr)
		}
	}
	unsupported := []string{"", "CF10", "DM200", "X100", "Z1"}
	for _, addr := range unsupported {
		if IsSupportedArea(addr) {
			t.Errorf("IsSupportedArea(%q) = true, want false", addr)
		}
	}
}
