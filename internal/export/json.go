// Package export renders mapping sets into downloadable artifacts.
package export

import (
	"encoding/json"

	"opcmap/internal/mapping/application"
)

// BuildJSON renders the canonical JSON artifact: an array of PLC export
// groups.
func BuildJSON(plcs []application.PLCExport) ([]byte, error) {
	return json.MarshalIndent(plcs, "", "  ")
}
