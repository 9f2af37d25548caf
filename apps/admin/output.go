package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// amount formats money for tables: 12,345.50
func amount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}

// writeJSON prints v as indented JSON. Used when stdout is not a terminal.
func (cli *commandLine) writeJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints an aligned table.
func (cli *commandLine) writeTable(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
