package application

import (
	"errors"
	"fmt"
	"sort"

	mapping "opcmap/internal/mapping/domain"
)

// ErrIndexOutOfRange is returned for operations on unknown mapping indices.
var ErrIndexOutOfRange = errors.New("workspace: index out of range")

// Workspace is the interactive-editing counterpart of the batch builder. It
// owns the current mapping list and keeps generated identifiers and bit-group
// membership consistent while a user adds, edits, removes, or toggles
// mappings. Edits are applied serially; each operation fully resolves before
// the next is accepted.
//
// The mapping list is the single source of truth. Bit-state lookups are
// recomputed from it on demand rather than maintained as long-lived caches.
type Workspace struct {
	plcOrdinal int
	mappings   []mapping.AddressMapping
	selection  map[int]struct{}
}

// NewWorkspace constructs a workspace over an initial mapping list.
func NewWorkspace(plcOrdinal int, mappings []mapping.AddressMapping) (*Workspace, error) {
	if plcOrdinal < 1 {
		return nil, errors.New("workspace: plc ordinal must be positive")
	}
	return &Workspace{
		plcOrdinal: plcOrdinal,
		mappings:   append([]mapping.AddressMapping(nil), mappings...),
		selection:  make(map[int]struct{}),
	}, nil
}

// Len returns the number of mappings.
func (w *Workspace) Len() int { return len(w.mappings) }

// Mappings returns a copy of the current mapping list.
func (w *Workspace) Mappings() []mapping.AddressMapping {
	return append([]mapping.AddressMapping(nil), w.mappings...)
}

// Mapping returns the mapping at index.
func (w *Workspace) Mapping(index int) (mapping.AddressMapping, error) {
	if index < 0 || index >= len(w.mappings) {
		return mapping.AddressMapping{}, ErrIndexOutOfRange
	}
	return w.mappings[index], nil
}

// Append adds a mapping to the end of the list, generating its identifier
// when the caller left it empty. Manually added template rows enter here.
func (w *Workspace) Append(m mapping.AddressMapping) int {
	if m.TargetIdentifier == "" && m.SourceAddress != "" {
		w.regenerate(&m)
	}
	w.mappings = append(w.mappings, m)
	return len(w.mappings) - 1
}

// SetSourceAddress replaces the source address of the mapping at index and
// regenerates its target identifier. The regeneration overwrites any
// hand-edited identifier unconditionally; no dirty tracking is kept.
func (w *Workspace) SetSourceAddress(index int, address string) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	if address == "" {
		return errors.New("workspace: empty source address")
	}
	m := &w.mappings[index]
	m.SourceAddress = mapping.NormalizeFixedWidth(address)
	if m.DeclaredType.IsBoolean() {
		m.SourceAddress = mapping.NormalizeBoolean(m.SourceAddress)
	}
	w.regenerate(m)
	return nil
}

// SetDeclaredType replaces the declared type of the mapping at index and
// regenerates its target identifier.
func (w *Workspace) SetDeclaredType(index int, declared mapping.DeclaredType) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	if declared == "" {
		return errors.New("workspace: empty declared type")
	}
	m := &w.mappings[index]
	m.DeclaredType = declared
	if declared.IsBoolean() {
		m.SourceAddress = mapping.NormalizeBoolean(m.SourceAddress)
	}
	w.regenerate(m)
	return nil
}

// SetTargetIdentifier stores a hand-edited identifier. It survives only
// until the next address or type edit regenerates the field.
func (w *Workspace) SetTargetIdentifier(index int, identifier string) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	w.mappings[index].TargetIdentifier = identifier
	return nil
}

// SetDescription stores a description without touching derived fields.
func (w *Workspace) SetDescription(index int, description string) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	w.mappings[index].Description = description
	return nil
}

// ToggleChannelBit flips bit membership on the boolean-channel mapping at
// index. The whole group is regenerated rather than patched in place: every
// individual boolean mapping at the channel's base address is removed, the
// bit set is recomputed, and the survivors are re-emitted. Two or more
// surviving bits keep the channel; exactly one collapses it into an
// ordinary boolean mapping; zero removes it.
func (w *Workspace) ToggleChannelBit(index, bit int) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	if bit < 0 || bit > mapping.MaxBitPosition {
		return fmt.Errorf("workspace: bit %d out of range", bit)
	}
	channel := w.mappings[index]
	if !channel.DeclaredType.IsChannel() {
		return errors.New("workspace: mapping is not a boolean channel")
	}
	base := channel.BaseAddress()

	bits := make(map[int]mapping.BitDetail)
	for _, b := range channel.BitPositions {
		detail := mapping.BitDetail{Address: fmt.Sprintf("%s.%02d", base, b), BitPosition: b}
		if channel.Metadata != nil {
			if d, ok := channel.Metadata.BitMap[mapping.BitKey(b)]; ok {
				detail = d
			}
		}
		bits[b] = detail
	}

	// Sweep individual boolean mappings at the same base into the group so
	// the regenerated set cannot drift from what is on screen.
	drop := make(map[int]struct{})
	for i, m := range w.mappings {
		if i == index || !m.DeclaredType.IsBoolean() || m.IsChannelLike() {
			continue
		}
		mBase, mBit := mapping.SplitBoolean(m.SourceAddress)
		if mBase != base {
			continue
		}
		drop[i] = struct{}{}
		if _, claimed := bits[mBit]; !claimed {
			bits[mBit] = mapping.BitDetail{
				Address:     m.SourceAddress,
				Description: m.Description,
				BitPosition: mBit,
			}
		}
	}

	if _, on := bits[bit]; on {
		delete(bits, bit)
	} else {
		bits[bit] = mapping.BitDetail{
			Address:     fmt.Sprintf("%s.%02d", base, bit),
			BitPosition: bit,
		}
	}

	surviving := make([]int, 0, len(bits))
	for b := range bits {
		surviving = append(surviving, b)
	}
	sort.Ints(surviving)

	switch {
	case len(surviving) >= 2:
		channel.SetBits(surviving, bits)
		channel.TargetIdentifier = mapping.GenerateIdentifier(base, mapping.TypeBool, 0, true, w.plcOrdinal)
		w.mappings[index] = channel
	case len(surviving) == 1:
		// A one-bit channel is never kept; the last bit becomes an
		// ordinary individual boolean mapping in the channel's slot.
		b := surviving[0]
		detail := bits[b]
		w.mappings[index] = mapping.AddressMapping{
			SourceAddress:    fmt.Sprintf("%s.%02d", base, b),
			DeclaredType:     mapping.TypeBool,
			TargetIdentifier: mapping.GenerateIdentifier(base, mapping.TypeBool, b, false, w.plcOrdinal),
			Description:      detail.Description,
		}
	default:
		drop[index] = struct{}{}
	}

	w.removeIndices(drop)
	return nil
}

// ToggleModifiedBit flips bit membership on the modified-channel mapping at
// index. Only that mapping's bit set and metadata change; boolean-channel
// mappings at the same base address are left untouched. Cross-group overlap
// is surfaced through BitState, not resolved here.
func (w *Workspace) ToggleModifiedBit(index, bit int) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	if bit < 0 || bit > mapping.MaxBitPosition {
		return fmt.Errorf("workspace: bit %d out of range", bit)
	}
	m := &w.mappings[index]
	if !m.DeclaredType.IsModifiedChannel() {
		return errors.New("workspace: mapping is not a modified channel")
	}

	details := make(map[int]mapping.BitDetail)
	if m.Metadata != nil {
		for _, d := range m.Metadata.BitMap {
			details[d.BitPosition] = d
		}
	}

	var bits []int
	found := false
	for _, b := range m.BitPositions {
		if b == bit {
			found = true
			continue
		}
		bits = append(bits, b)
	}
	if !found {
		bits = append(bits, bit)
	}
	sort.Ints(bits)
	m.SetBits(bits, details)
	return nil
}

// Remove deletes the mapping at index. Tracked index references shift so no
// stale index survives the removal.
func (w *Workspace) Remove(index int) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	w.removeIndices(map[int]struct{}{index: {}})
	return nil
}

// Select marks or unmarks the mapping at index for export filtering.
func (w *Workspace) Select(index int, selected bool) error {
	if index < 0 || index >= len(w.mappings) {
		return ErrIndexOutOfRange
	}
	if selected {
		w.selection[index] = struct{}{}
	} else {
		delete(w.selection, index)
	}
	return nil
}

// Selection returns the selected indices in ascending order.
func (w *Workspace) Selection() []int {
	indices := make([]int, 0, len(w.selection))
	for i := range w.selection {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// BitState reports which bit positions at a base address are claimed by the
// boolean-channel grouping and, separately, by each modified-channel
// grouping (keyed by mapping index). It is recomputed from the mapping list
// on every call; the UI reads both sides to warn on cross-group overlap.
type BitState struct {
	Channel  []int
	Modified map[int][]int
}

// BitStateFor computes the current bit claims at a base address.
func (w *Workspace) BitStateFor(base string) BitState {
	state := BitState{Modified: make(map[int][]int)}
	for i, m := range w.mappings {
		if m.BaseAddress() != base {
			continue
		}
		switch {
		case m.DeclaredType.IsChannel():
			state.Channel = append(state.Channel, m.Bits()...)
		case m.DeclaredType.IsModifiedChannel():
			state.Modified[i] = m.Bits()
		}
	}
	sort.Ints(state.Channel)
	return state
}

func (w *Workspace) regenerate(m *mapping.AddressMapping) {
	bit := 0
	if m.DeclaredType.IsBoolean() {
		_, bit = mapping.SplitBoolean(m.SourceAddress)
	}
	isGroup := m.DeclaredType.IsChannel() && len(m.BitPositions) >= 2
	declared := m.DeclaredType
	if isGroup {
		declared = mapping.TypeBool
	}
	m.TargetIdentifier = mapping.GenerateIdentifier(m.SourceAddress, declared, bit, isGroup, w.plcOrdinal)
}

// removeIndices drops the given indices and remaps the selection set so it
// keeps pointing at the same mappings.
func (w *Workspace) removeIndices(drop map[int]struct{}) {
	if len(drop) == 0 {
		return
	}
	kept := make([]mapping.AddressMapping, 0, len(w.mappings))
	selection := make(map[int]struct{}, len(w.selection))
	for i, m := range w.mappings {
		if _, dropped := drop[i]; dropped {
			continue
		}
		if _, selected := w.selection[i]; selected {
			selection[len(kept)] = struct{}{}
		}
		kept = append(kept, m)
	}
	w.mappings = kept
	w.selection = selection
}
