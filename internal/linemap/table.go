package linemap

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatCSV, FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv, json or text)", s)
	}
}

// Write renders t in the given format.
func Write(w io.Writer, t Table, format OutputFormat) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatText:
		return WriteText(w, t)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteCSV writes t as header-less module,file,line,address rows.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	for _, r := range t {
		if err := cw.Write([]string{r.Module, r.File, strconv.Itoa(r.Line), r.AddressHex()}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRecord struct {
	Module  string `json:"module"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Address string `json:"address"`
}

// WriteJSON writes t as a JSON array.
func WriteJSON(w io.Writer, t Table) error {
	out := make([]jsonRecord, len(t))
	for i, r := range t {
		out[i] = jsonRecord{Module: r.Module, File: r.File, Line: r.Line, Address: r.AddressHex()}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	indexStyle  = cellStyle.Foreground(lipgloss.Color("241"))
)

// WriteText renders every row of t as a bordered table for terminals.
func WriteText(w io.Writer, t Table) error {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "MODULE", "FILE", "LINE", "ADDRESS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return indexStyle
			default:
				return cellStyle
			}
		})

	for i, r := range t {
		tbl.Row(strconv.Itoa(i), r.Module, r.File, strconv.Itoa(r.Line), r.AddressHex())
	}

	_, err := fmt.Fprintf(w, "%s\n[%d rows x 4 columns]\n", tbl.Render(), len(t))
	return err
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.ReuseRecord = true

	var t Table
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, err := strconv.Atoi(row[2])
		if err != nil || line < 1 {
			return nil, fmt.Errorf("row %d: invalid line %q", len(t)+1, row[2])
		}
		addr, err := ParseAddress(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(t)+1, err)
		}
		t = append(t, Record{Module: row[0], File: row[1], Line: line, Address: addr})
	}
}
