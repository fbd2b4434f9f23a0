package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxBitPosition is the highest bit index a 16-bit register channel can hold.
const MaxBitPosition = 15

// fixedWidthFamily is the one address family whose canonical form pads the
// numeric suffix with leading zeros up to a fixed total width.
const (
	fixedWidthFamily = 'E'
	canonicalWidth   = 5
)

// supportedAreas is the closed whitelist of single-letter memory-area
// prefixes. Digit-leading addresses are always supported and classify as
// area A.
var supportedAreas = map[byte]struct{}{
	'A': {}, 'C': {}, 'D': {}, 'E': {}, 'H': {}, 'I': {}, 'M': {}, 'T': {}, 'W': {},
}

// NormalizeFixedWidth canonicalizes addresses of the fixed-width family by
// zero-padding the numeric part so the stem reaches the canonical width
// (E999 becomes E0999). Addresses of any other family, and stems already at
// canonical width, pass through unchanged. A bit suffix after a dot is
// preserved as-is.
func NormalizeFixedWidth(addr string) string {
	stem, frac, hasFrac := strings.Cut(addr, ".")
	if !isFixedWidthStem(stem) || len(stem) >= canonicalWidth {
		return addr
	}
	padded := stem[:1] + strings.Repeat("0", canonicalWidth-len(stem)) + stem[1:]
	if hasFrac {
		return padded + "." + frac
	}
	return padded
}

func isFixedWidthStem(stem string) bool {
	if len(stem) < 2 || stem[0] != fixedWidthFamily {
		return false
	}
	for i := 1; i < len(stem); i++ {
		if !isDigit(stem[i]) {
			return false
		}
	}
	return true
}

// NormalizeBoolean canonicalizes a boolean address to the base.bit form.
// An address without a dot denotes bit 0 and is rewritten as base.00. A
// one-character fractional part is padded to the two-character field by
// appending a zero: "1100.1" becomes "1100.10". The padding is textual,
// not arithmetic.
func NormalizeBoolean(addr string) string {
	base, frac, ok := strings.Cut(addr, ".")
	if !ok {
		return addr + ".00"
	}
	for len(frac) < 2 {
		frac += "0"
	}
	return base + "." + frac
}

// SplitBoolean splits a boolean address into its base address and bit
// position. An address without a bit suffix denotes bit 0.
func SplitBoolean(addr string) (string, int) {
	base, frac, ok := strings.Cut(addr, ".")
	if !ok {
		return base, 0
	}
	bit, err := parseBit(frac)
	if err != nil {
		return base, 0
	}
	return base, bit
}

func parseBit(frac string) (int, error) {
	bit, err := strconv.Atoi(frac)
	if err != nil {
		return 0, fmt.Errorf("address: bad bit suffix %q", frac)
	}
	return bit, nil
}

// ClassifyArea derives the coarse memory-area category of an address.
// Digit-leading and empty addresses default to area A; otherwise the area is
// the upper-cased first character.
func ClassifyArea(addr string) string {
	if addr == "" || isDigit(addr[0]) {
		return "A"
	}
	return strings.ToUpper(addr[:1])
}

// IsSupportedArea reports whether an address belongs to a memory area this
// engine understands. Empty addresses and two-letter area prefixes are
// rejected; digit-leading addresses are always accepted; single-letter
// prefixes must be on the area whitelist.
func IsSupportedArea(addr string) bool {
	if addr == "" {
		return false
	}
	if isDigit(addr[0]) {
		return true
	}
	if len(addr) >= 2 && isLetter(addr[1]) {
		return false
	}
	_, ok := supportedAreas[upperByte(addr[0])]
	return ok
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
