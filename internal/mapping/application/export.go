package application

import (
	"strings"

	mapping "opcmap/internal/mapping/domain"
)

// ExportMapping is the outward projection of one address mapping. Declared
// types are lower-cased; the modified-channel pseudo-type is rewritten to
// the literal "channel".
type ExportMapping struct {
	SourceAddress    string            `json:"sourceAddress"`
	DeclaredType     string            `json:"declaredType"`
	TargetIdentifier string            `json:"targetIdentifier"`
	Description      string            `json:"description,omitempty"`
	MemoryArea       string            `json:"memoryArea"`
	Metadata         *mapping.Metadata `json:"metadata,omitempty"`
}

// PLCExport groups exported mappings under their PLC descriptor. It is the
// unit serialized into the final JSON artifact.
type PLCExport struct {
	Name     string          `json:"name"`
	IP       string          `json:"ip"`
	OpcuaURL string          `json:"opcuaUrl"`
	Mappings []ExportMapping `json:"mappings"`
}

// ExportFilter restricts which mappings are projected. Areas limits by
// memory area; Selected limits by mapping index. An empty filter side
// passes everything through.
type ExportFilter struct {
	Areas    []string
	Selected []int
}

// ExportResult carries the projection plus dedup bookkeeping. Identifier
// collisions are resolved here, at export time only, by keeping the first
// occurrence in list order; the shadowed mappings stay editable upstream.
type ExportResult struct {
	PLC               PLCExport
	DuplicatesDropped int
}

// BuildExport projects a mapping list into its export form, applying the
// filter and then keep-first deduplication on (plcName, targetIdentifier).
func BuildExport(plc mapping.PLCDescriptor, mappings []mapping.AddressMapping, filter ExportFilter) ExportResult {
	areas := make(map[string]struct{}, len(filter.Areas))
	for _, area := range filter.Areas {
		areas[strings.ToUpper(area)] = struct{}{}
	}
	selected := make(map[int]struct{}, len(filter.Selected))
	for _, index := range filter.Selected {
		selected[index] = struct{}{}
	}

	result := ExportResult{PLC: PLCExport{
		Name:     plc.Name,
		IP:       plc.IP,
		OpcuaURL: plc.OpcuaURL,
		Mappings: []ExportMapping{},
	}}

	seen := make(map[string]struct{}, len(mappings))
	for i, m := range mappings {
		if len(selected) > 0 {
			if _, ok := selected[i]; !ok {
				continue
			}
		}
		area := mapping.ClassifyArea(m.SourceAddress)
		if len(areas) > 0 {
			if _, ok := areas[area]; !ok {
				continue
			}
		}

		key := plc.Name + "\x00" + m.TargetIdentifier
		if _, dup := seen[key]; dup {
			result.DuplicatesDropped++
			continue
		}
		seen[key] = struct{}{}

		result.PLC.Mappings = append(result.PLC.Mappings, ExportMapping{
			SourceAddress:    m.SourceAddress,
			DeclaredType:     exportType(m.DeclaredType),
			TargetIdentifier: m.TargetIdentifier,
			Description:      m.Description,
			MemoryArea:       area,
			Metadata:         m.Metadata,
		})
	}
	return result
}

func exportType(declared mapping.DeclaredType) string {
	if declared.IsModifiedChannel() {
		return "channel"
	}
	return strings.ToLower(string(declared))
}
