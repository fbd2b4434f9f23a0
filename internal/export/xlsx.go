package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"opcmap/internal/mapping/application"
)

// BuildXLSX renders a mapping workbook: a summary sheet with the PLC
// descriptor and counts, and a mappings sheet with one row per mapping.
func BuildXLSX(plc application.PLCExport) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	mappingsSheet := "mappings"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(mappingsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Address Mapping Export")
	_ = f.SetCellValue(summarySheet, "A3", "PLC")
	_ = f.SetCellValue(summarySheet, "B3", plc.Name)
	_ = f.SetCellValue(summarySheet, "A4", "IP")
	_ = f.SetCellValue(summarySheet, "B4", plc.IP)
	_ = f.SetCellValue(summarySheet, "A5", "OPC UA URL")
	_ = f.SetCellValue(summarySheet, "B5", plc.OpcuaURL)
	_ = f.SetCellValue(summarySheet, "A6", "Mappings")
	_ = f.SetCellValue(summarySheet, "B6", len(plc.Mappings))

	areaCounts := make(map[string]int)
	for _, m := range plc.Mappings {
		areaCounts[m.MemoryArea]++
	}
	row := 8
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Memory Area")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), "Count")
	for _, area := range sortedAreas(areaCounts) {
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), area)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), areaCounts[area])
	}

	_ = f.SetCellValue(mappingsSheet, "A1", "Source Address")
	_ = f.SetCellValue(mappingsSheet, "B1", "Declared Type")
	_ = f.SetCellValue(mappingsSheet, "C1", "Target Identifier")
	_ = f.SetCellValue(mappingsSheet, "D1", "Memory Area")
	_ = f.SetCellValue(mappingsSheet, "E1", "Description")
	_ = f.SetCellValue(mappingsSheet, "F1", "Bit Count")
	for i, m := range plc.Mappings {
		r := i + 2
		_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("A%d", r), m.SourceAddress)
		_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("B%d", r), m.DeclaredType)
		_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("C%d", r), m.TargetIdentifier)
		_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("D%d", r), m.MemoryArea)
		_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("E%d", r), m.Description)
		if m.Metadata != nil {
			_ = f.SetCellValue(mappingsSheet, fmt.Sprintf("F%d", r), m.Metadata.BitCount)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
