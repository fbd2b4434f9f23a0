package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// DeclaredType is the register data type declared by the PLC programming tool,
// plus the two synthetic grouping pseudo-types produced by this engine.
type DeclaredType string

const (
	TypeBool  DeclaredType = "BOOL"
	TypeWord  DeclaredType = "WORD"
	TypeInt   DeclaredType = "INT"
	TypeUDInt DeclaredType = "UDINT"
	TypeDWord DeclaredType = "DWORD"
	TypeReal  DeclaredType = "REAL"
	TypeLReal DeclaredType = "LREAL"

	// TypeChannel marks an auto-grouped boolean channel (2+ bits at one base
	// address) or a channel declared as such in the source export.
	TypeChannel DeclaredType = "CHANNEL"
	// TypeModifiedChannel marks a user-authored multi-bit group. Its bit
	// bookkeeping is independent of the auto-grouped boolean channel.
	TypeModifiedChannel DeclaredType = "MODIFIED_CHANNEL"
)

// IsBoolean reports whether the type is the boolean register type.
func (t DeclaredType) IsBoolean() bool {
	return strings.EqualFold(string(t), string(TypeBool))
}

// IsChannel reports whether the type is the channel pseudo-type, any casing.
func (t DeclaredType) IsChannel() bool {
	return strings.EqualFold(string(t), string(TypeChannel))
}

// IsModifiedChannel reports whether the type is the user-authored group type.
func (t DeclaredType) IsModifiedChannel() bool {
	return strings.EqualFold(string(t), string(TypeModifiedChannel))
}

// RawRecord is one ingested row from a register export. It exists only while
// a batch build is running.
type RawRecord struct {
	DeclaredType string
	Address      string
	Description  string
	Value        string
}

// BitDetail describes one bit claimed by a channel-like mapping. Value is
// the last raw value seen for the bit in the source export, kept verbatim.
type BitDetail struct {
	Address     string `json:"address"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
	BitPosition int    `json:"bitPosition"`
}

// Metadata is the denormalized view of a channel's bit membership, carried
// for persistence and export compatibility. BitPositions on the mapping is
// the authoritative source; Metadata is derived from it.
type Metadata struct {
	BitCount int                  `json:"bitCount"`
	BitMap   map[string]BitDetail `json:"bitMap"`
}

// AddressMapping pairs a normalized source register address with a generated
// OPC UA target identifier.
type AddressMapping struct {
	SourceAddress    string       `json:"sourceAddress"`
	DeclaredType     DeclaredType `json:"declaredType"`
	TargetIdentifier string       `json:"targetIdentifier"`
	Description      string       `json:"description,omitempty"`
	BitPositions     []int        `json:"bitPositions,omitempty"`
	Metadata         *Metadata    `json:"metadata,omitempty"`
}

// BaseAddress returns the address stem before any bit-position suffix.
func (m AddressMapping) BaseAddress() string {
	base, _, _ := strings.Cut(m.SourceAddress, ".")
	return base
}

// IsChannelLike reports whether the mapping carries a bit-position set.
func (m AddressMapping) IsChannelLike() bool {
	return m.DeclaredType.IsChannel() || m.DeclaredType.IsModifiedChannel()
}

// SetBits replaces the mapping's bit membership and rebuilds Metadata.
// Details may be nil; missing details are synthesized from the base address.
func (m *AddressMapping) SetBits(bits []int, details map[int]BitDetail) {
	m.BitPositions = append([]int(nil), bits...)
	if len(bits) == 0 {
		m.Metadata = nil
		return
	}
	base := m.BaseAddress()
	bitMap := make(map[string]BitDetail, len(bits))
	for _, bit := range bits {
		detail, ok := details[bit]
		if !ok {
			detail = BitDetail{Address: fmt.Sprintf("%s.%02d", base, bit)}
		}
		detail.BitPosition = bit
		if detail.Address == "" {
			detail.Address = fmt.Sprintf("%s.%02d", base, bit)
		}
		bitMap[BitKey(bit)] = detail
	}
	m.Metadata = &Metadata{BitCount: len(bits), BitMap: bitMap}
}

// Bits returns the claimed bit positions. BitPositions is authoritative;
// parsing a bit suffix out of the source address is the fallback.
func (m AddressMapping) Bits() []int {
	if len(m.BitPositions) > 0 {
		return append([]int(nil), m.BitPositions...)
	}
	if _, frac, ok := strings.Cut(m.SourceAddress, "."); ok {
		if bit, err := parseBit(frac); err == nil {
			return []int{bit}
		}
	}
	return nil
}

// BitKey formats a bit position as the two-digit key used in Metadata.
func BitKey(bit int) string {
	return fmt.Sprintf("%02d", bit)
}

// Validate checks structural invariants of a mapping.
func (m AddressMapping) Validate() error {
	if m.SourceAddress == "" {
		return errors.New("mapping: empty source address")
	}
	if m.DeclaredType == "" {
		return errors.New("mapping: empty declared type")
	}
	for _, bit := range m.BitPositions {
		if bit < 0 || bit > MaxBitPosition {
			return fmt.Errorf("mapping: bit position %d out of range", bit)
		}
	}
	if m.DeclaredType.IsChannel() && len(m.BitPositions) == 1 {
		return errors.New("mapping: one-bit boolean channel is not allowed")
	}
	return nil
}
