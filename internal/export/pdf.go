package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"opcmap/internal/mapping/application"
)

// BuildPDF renders a mapping summary report: PLC header block, per-area
// counts, and the mapping table.
func BuildPDF(plc application.PLCExport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Address Mapping Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("PLC: %s", plc.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("IP: %s", plc.IP))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("OPC UA: %s", plc.OpcuaURL))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Mappings: %d", len(plc.Mappings)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	areaCounts := make(map[string]int)
	for _, m := range plc.Mappings {
		areaCounts[m.MemoryArea]++
	}
	for _, area := range sortedAreas(areaCounts) {
		pdf.Cell(0, 5, fmt.Sprintf("Area %s: %d", area, areaCounts[area]))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(35, 6, "Address", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Identifier", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Area", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, m := range plc.Mappings {
		pdf.CellFormat(35, 6, m.SourceAddress, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, m.DeclaredType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(55, 6, m.TargetIdentifier, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, m.MemoryArea, "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, m.Description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedAreas(counts map[string]int) []string {
	areas := make([]string, 0, len(counts))
	for area := range counts {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas
}
