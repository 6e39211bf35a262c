package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/axondata/go-servicer"
)

// Output formats accepted by WriteStatus
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// StatusRecord is the machine-readable form of a status row
type StatusRecord struct {
	Name          string  `json:"name" yaml:"name"`
	Unit          string  `json:"unit" yaml:"unit"`
	PID           uint32  `json:"pid" yaml:"pid"`
	Active        bool    `json:"active" yaml:"active"`
	ActiveState   string  `json:"active_state" yaml:"active_state"`
	EnabledOnBoot bool    `json:"enabled_on_boot" yaml:"enabled_on_boot"`
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryBytes   uint64  `json:"memory_bytes" yaml:"memory_bytes"`
	Error         string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Records converts status rows for encoding
func Records(rows []servicer.ServiceStatus) []StatusRecord {
	recs := make([]StatusRecord, len(rows))
	for i, r := range rows {
		recs[i] = StatusRecord{
			Name:          r.Name,
			Unit:          r.Unit,
			PID:           r.PID,
			Active:        r.Active,
			ActiveState:   r.State.Active.String(),
			EnabledOnBoot: r.EnabledOnBoot,
			CPUPercent:    r.CPUPercent,
			MemoryBytes:   r.MemoryBytes,
		}
		if r.Err != nil {
			recs[i].Error = r.Err.Error()
		}
	}
	return recs
}

// WriteStatus renders rows as a table, JSON or YAML
func WriteStatus(w io.Writer, format string, rows []servicer.ServiceStatus) error {
	switch format {
	case "", FormatTable:
		StatusTable(w, rows)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Records(rows))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Records(rows)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// StatusTable prints the status report
func StatusTable(w io.Writer, rows []servicer.ServiceStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"pid", "name", "active", "enable on boot", "cpu %", "memory"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range rows {
		table.Append([]string{
			strconv.FormatUint(uint64(r.PID), 10),
			r.Name,
			strconv.FormatBool(r.Active),
			strconv.FormatBool(r.EnabledOnBoot),
			strconv.FormatFloat(r.CPUPercent, 'f', 1, 64),
			MemorySize(r.MemoryBytes),
		})
	}
	table.Render()

	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintln(w, Hint(fmt.Sprintf("%s: %v", r.Name, r.Err)))
		}
	}
}

// MemorySize formats bytes with binary units, "0" for nothing
func MemorySize(b uint64) string {
	if b == 0 {
		return "0"
	}
	return units.BytesSize(float64(b))
}

// RenderPaths prints the locations of a unit
func RenderPaths(w io.Writer, unit string, paths []servicer.PathEntry) {
	fmt.Fprintf(w, "Paths for %s:\n", unit)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"name", "path"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range paths {
		table.Append([]string{p.Label, p.Path})
	}
	table.Render()
}
