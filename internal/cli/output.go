package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ValueReport is the collected result for one tree node, nested to the
// requested depth.
type ValueReport struct {
	Name         string         `json:"name"`
	Text         string         `json:"text"`
	Type         string         `json:"type,omitempty"`
	Icon         string         `json:"icon,omitempty"`
	Error        string         `json:"error,omitempty"`
	HasFullValue bool           `json:"hasFullValue,omitempty"`
	MoreChildren int            `json:"moreChildren,omitempty"`
	Children     []*ValueReport `json:"children,omitempty"`
}

func writeReports(out io.Writer, format string, reports []*ValueReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	default:
		for _, r := range reports {
			writeTextReport(out, r, 0)
		}
		return nil
	}
}

func writeTextReport(out io.Writer, r *ValueReport, depth int) {
	indent := strings.Repeat("  ", depth)

	line := fmt.Sprintf("%s%s = %s", indent, r.Name, r.Text)
	if r.Name == "" {
		line = fmt.Sprintf("%s%s", indent, r.Text)
	}
	if r.Type != "" {
		line += fmt.Sprintf(" {%s}", r.Type)
	}
	if r.Error != "" && r.Error != r.Text {
		line += fmt.Sprintf(" [error: %s]", r.Error)
	}
	if r.HasFullValue {
		line += " [truncated]"
	}
	fmt.Fprintln(out, line)

	for _, c := range r.Children {
		writeTextReport(out, c, depth+1)
	}
	if r.MoreChildren > 0 {
		fmt.Fprintf(out, "%s  ... %d more\n", indent, r.MoreChildren)
	}
}
