package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// formatJSON pretty-prints v to stdout.
func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

// formatTable prints headers, a dashed rule, then the rows, with each
// column sized to its widest cell.
func formatTable(headers []string, rows [][]string) {
	widths := columnWidths(headers, rows)

	printTableRow(headers, widths)

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	printTableRow(rule, widths)

	for _, row := range rows {
		printTableRow(row, widths)
	}
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func printTableRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		parts[i] = fmt.Sprintf("%-*s", w, cell)
	}
	fmt.Println(strings.Join(parts, "  "))
}

func formatQuiet(id string) {
	fmt.Println(id)
}

// output renders v according to the --format flag. Table output needs
// explicit columns, so commands call formatTable directly and generic
// values fall back to JSON.
func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	default:
		formatJSON(v)
	}
}
