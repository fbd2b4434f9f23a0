package application

import (
	"errors"
	"sort"

	mapping "opcmap/internal/mapping/domain"
)

// Skip reasons form a closed set: addresses outside the memory area
// whitelist, and boolean bit suffixes beyond the 16-bit register range.
const (
	ReasonUnsupportedArea = "unsupported memory area"
	ReasonBitOutOfRange   = "bit position out of range"
)

// Stats summarizes one batch build.
type Stats struct {
	TotalRecords    int `json:"totalRecords"`
	ValidRecords    int `json:"validRecords"`
	SkippedRecords  int `json:"skippedRecords"`
	BooleanChannels int `json:"booleanChannels"`
}

// SkippedRecord describes one rejected input row.
type SkippedRecord struct {
	Address      string `json:"address"`
	DeclaredType string `json:"declaredType"`
	Description  string `json:"description,omitempty"`
	Reason       string `json:"reason"`
}

// BuildResult is the complete outcome of a batch build. Rejected input is
// routed into Skipped rather than returned as an error; a build never fails.
type BuildResult struct {
	Mappings               []mapping.AddressMapping `json:"mappings"`
	Stats                  Stats                    `json:"stats"`
	Skipped                []SkippedRecord          `json:"skipped"`
	MergedBooleanAddresses []string                 `json:"mergedBooleanAddresses"`
}

// Builder transforms a raw register record list into address mappings.
type Builder struct {
	plcOrdinal int
}

// NewBuilder constructs a builder for one PLC.
func NewBuilder(plcOrdinal int) (*Builder, error) {
	if plcOrdinal < 1 {
		return nil, errors.New("builder: plc ordinal must be positive")
	}
	return &Builder{plcOrdinal: plcOrdinal}, nil
}

type booleanEntry struct {
	original    string
	normalized  string
	bit         int
	description string
	value       string
}

// Build consumes the ordered record list and emits the final mapping list.
// Boolean records sharing a base address are grouped: two or more bits form
// one channel mapping, a single bit stays an ordinary boolean mapping.
// Grouped booleans come first in bucket order, then the remaining types in
// input order.
func (b *Builder) Build(records []mapping.RawRecord) BuildResult {
	result := BuildResult{
		Mappings:               []mapping.AddressMapping{},
		Skipped:                []SkippedRecord{},
		MergedBooleanAddresses: []string{},
	}
	result.Stats.TotalRecords = len(records)

	buckets := make(map[string][]booleanEntry)
	var bucketOrder []string
	var others []mapping.AddressMapping

	for _, rec := range records {
		declared := mapping.DeclaredType(rec.DeclaredType)

		if !mapping.IsSupportedArea(rec.Address) {
			result.Skipped = append(result.Skipped, SkippedRecord{
				Address:      rec.Address,
				DeclaredType: rec.DeclaredType,
				Description:  rec.Description,
				Reason:       ReasonUnsupportedArea,
			})
			continue
		}

		addr := mapping.NormalizeFixedWidth(rec.Address)

		switch {
		case declared.IsBoolean():
			normalized := mapping.NormalizeBoolean(addr)
			base, bit := mapping.SplitBoolean(normalized)
			// Right-padding makes ".3" denote bit 30, which no 16-bit
			// register has. Such rows are skipped here so a later session
			// validation cannot fail the whole batch.
			if bit < 0 || bit > mapping.MaxBitPosition {
				result.Skipped = append(result.Skipped, SkippedRecord{
					Address:      rec.Address,
					DeclaredType: rec.DeclaredType,
					Description:  rec.Description,
					Reason:       ReasonBitOutOfRange,
				})
				continue
			}
			if _, seen := buckets[base]; !seen {
				bucketOrder = append(bucketOrder, base)
			}
			buckets[base] = append(buckets[base], booleanEntry{
				original:    rec.Address,
				normalized:  normalized,
				bit:         bit,
				description: rec.Description,
				value:       rec.Value,
			})
		default:
			// Declared channels take the channel identifier branch inside
			// the generator; every other type gets its word-width suffix.
			// The declared type is preserved verbatim either way.
			others = append(others, mapping.AddressMapping{
				SourceAddress:    addr,
				DeclaredType:     declared,
				TargetIdentifier: mapping.GenerateIdentifier(addr, declared, 0, false, b.plcOrdinal),
				Description:      rec.Description,
			})
		}
	}

	var booleans []mapping.AddressMapping
	for _, base := range bucketOrder {
		entries := buckets[base]
		if len(entries) >= 2 {
			booleans = append(booleans, b.buildChannel(base, entries))
			for _, entry := range entries {
				result.MergedBooleanAddresses = append(result.MergedBooleanAddresses, entry.original)
			}
			result.Stats.BooleanChannels++
			continue
		}
		entry := entries[0]
		booleans = append(booleans, mapping.AddressMapping{
			SourceAddress:    entry.normalized,
			DeclaredType:     mapping.TypeBool,
			TargetIdentifier: mapping.GenerateIdentifier(base, mapping.TypeBool, entry.bit, false, b.plcOrdinal),
			Description:      entry.description,
		})
	}

	result.Mappings = append(booleans, others...)
	result.Stats.ValidRecords = len(result.Mappings)
	result.Stats.SkippedRecords = len(result.Skipped)
	return result
}

func (b *Builder) buildChannel(base string, entries []booleanEntry) mapping.AddressMapping {
	channel := mapping.AddressMapping{
		SourceAddress:    base,
		DeclaredType:     mapping.TypeChannel,
		TargetIdentifier: mapping.GenerateIdentifier(base, mapping.TypeBool, 0, true, b.plcOrdinal),
	}

	bits := make([]int, 0, len(entries))
	details := make(map[int]mapping.BitDetail, len(entries))
	for _, entry := range entries {
		if _, dup := details[entry.bit]; dup {
			continue
		}
		bits = append(bits, entry.bit)
		details[entry.bit] = mapping.BitDetail{
			Address:     entry.normalized,
			Description: entry.description,
			Value:       entry.value,
			BitPosition: entry.bit,
		}
		if channel.Description == "" {
			channel.Description = entry.description
		}
	}
	sort.Ints(bits)
	channel.SetBits(bits, details)
	return channel
}
