package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/xuri/excelize/v2"

	"opcmap/internal/mapping/application"
)

func samplePLC() application.PLCExport {
	return application.PLCExport{
		Name:     "line-1",
		IP:       "10.0.0.5",
		OpcuaURL: "opc.tcp://10.0.0.5:4840",
		Mappings: []application.ExportMapping{
			{SourceAddress: "E0999", DeclaredType: "channel", TargetIdentifier: "P1_E_0999_BC", MemoryArea: "E"},
			{SourceAddress: "D200", DeclaredType: "udint", TargetIdentifier: "P1_D_200_W2", MemoryArea: "D", Description: "speed setpoint"},
		},
	}
}

func TestBuildJSONRoundTrip(t *testing.T) {
	data, err := BuildJSON([]application.PLCExport{samplePLC()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var decoded []application.PLCExport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "line-1" {
		t.Fatalf("decoded = %+v", decoded)
	}
	if len(decoded[0].Mappings) != 2 {
		t.Fatalf("mappings = %d, want 2", len(decoded[0].Mappings))
	}
	if decoded[0].Mappings[0].TargetIdentifier != "P1_E_0999_BC" {
		t.Fatalf("mapping 0 = %+v", decoded[0].Mappings[0])
	}
}

func TestBuildXLSXSheets(t *testing.T) {
	data, err := BuildXLSX(samplePLC())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "summary" || sheets[1] != "mappings" {
		t.Fatalf("sheets = %v", sheets)
	}
	plcName, err := f.GetCellValue("summary", "B3")
	if err != nil || plcName != "line-1" {
		t.Fatalf("summary B3 = %q, %v", plcName, err)
	}
	identifier, err := f.GetCellValue("mappings", "C2")
	if err != nil || identifier != "P1_E_0999_BC" {
		t.Fatalf("mappings C2 = %q, %v", identifier, err)
	}
	rows, err := f.GetRows("mappings")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("mapping rows = %d, want header + 2", len(rows))
	}
}

func TestBuildPDFNotEmpty(t *testing.T) {
	data, err := BuildPDF(samplePLC())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output does not start with a PDF header")
	}
}
