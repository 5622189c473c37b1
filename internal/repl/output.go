package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"airportsearch/internal/query"

	"golang.org/x/term"
)

// Output formats.
const (
	FormatList  = "list"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Printer writes query results as a list, a table or JSON.
type Printer struct {
	format string
	w      io.Writer
}

// NewPrinter creates a printer for one of the Format constants.
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case FormatList, FormatTable, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Printer{format: format, w: w}, nil
}

// Print writes the rows of res followed by a summary.
func (p *Printer) Print(res *query.Result) error {
	switch p.format {
	case FormatTable:
		p.table(res)
	case FormatJSON:
		return p.json(res)
	default:
		for _, row := range res.Rows {
			_, _ = fmt.Fprintln(p.w, row.String())
		}
	}
	_, err := fmt.Fprintf(p.w, "Found %d rows in %d ms\n", res.Count(), res.Elapsed.Milliseconds())
	return err
}

// table writes rows using tabwriter, with one column[N] header per field.
func (p *Printer) table(res *query.Result) {
	width := 0
	for _, row := range res.Rows {
		width = max(width, len(row))
	}
	if width == 0 {
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for i := range width {
		if i > 0 {
			_, _ = fmt.Fprint(tw, "\t")
		}
		_, _ = fmt.Fprint(tw, "column["+strconv.Itoa(i+1)+"]")
	}
	_, _ = fmt.Fprintln(tw)
	for _, row := range res.Rows {
		for i, col := range row {
			if i > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}
			_, _ = fmt.Fprint(tw, col)
		}
		_, _ = fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

type jsonResult struct {
	QueryID   string     `json:"query_id"`
	Prefix    string     `json:"prefix"`
	Count     int        `json:"count"`
	Excluded  int        `json:"excluded"`
	ElapsedMS int64      `json:"elapsed_ms"`
	Rows      [][]string `json:"rows"`
}

// json marshals the result as indented JSON.
func (p *Printer) json(res *query.Result) error {
	out := jsonResult{
		QueryID:   res.ID.String(),
		Prefix:    res.Prefix,
		Count:     res.Count(),
		Excluded:  res.Excluded,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Rows:      make([][]string, 0, len(res.Rows)),
	}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, row)
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ShowPrompts resolves a prompt mode ("auto", "always", "never") against the
// input file. In auto mode prompts are shown only when in is a terminal.
func ShowPrompts(mode string, in *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return in != nil && term.IsTerminal(int(in.Fd()))
}
