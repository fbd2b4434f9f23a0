package mapping

import (
	"fmt"
	"strings"
)

// wordWidths maps declared register types to the word-count suffix used in
// generated identifiers. The set is closed; unknown types fall back to
// defaultWordWidth.
var wordWidths = map[string]int{
	"WORD":  1,
	"INT":   1,
	"UDINT": 2,
	"DWORD": 3,
	"REAL":  4,
	"LREAL": 8,
}

const defaultWordWidth = 1

// GenerateIdentifier derives the OPC UA target identifier for a mapping.
// It is a pure function and the single source of truth for identifiers:
// whenever a mapping's address, type, bit position or PLC ordinal changes,
// the identifier is regenerated through this function, never patched by
// hand.
//
// The identifier is composed as P{plcOrdinal}_{area}_{register}_{suffix}
// where the register part is the base address with its area letter stripped
// (digit-leading addresses keep the full base) and the suffix encodes the
// declared type: BC for a grouped boolean channel, Bnn for an individual
// bit, C for a declared channel, and W{n} with the per-type word width for
// everything else.
func GenerateIdentifier(address string, declaredType DeclaredType, bitPosition int, isBitGroup bool, plcOrdinal int) string {
	area := ClassifyArea(address)

	base, _, _ := strings.Cut(address, ".")
	register := base
	if register != "" && !isDigit(register[0]) {
		register = register[1:]
	}

	var suffix string
	switch {
	case declaredType.IsBoolean() && isBitGroup:
		suffix = "BC"
	case declaredType.IsBoolean():
		suffix = fmt.Sprintf("B%02d", bitPosition)
	case declaredType.IsChannel():
		suffix = "C"
	default:
		suffix = fmt.Sprintf("W%d", wordWidth(declaredType))
	}

	return fmt.Sprintf("P%d_%s_%s_%s", plcOrdinal, area, register, suffix)
}

func wordWidth(declaredType DeclaredType) int {
	if width, ok := wordWidths[strings.ToUpper(string(declaredType))]; ok {
		return width
	}
	return defaultWordWidth
}
