package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

type Mode string

const (
	ModeHuman  Mode = "human"
	ModePlain  Mode = "plain"
	ModeJSON   Mode = "json"
	ModeNDJSON Mode = "ndjson"
)

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Count     int    `json:"count,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
	AuditID   string `json:"audit_id,omitempty"`
}

type Envelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

func DetectMode(jsonFlag, plainFlag, ndjsonFlag bool, stdoutIsTTY bool) (Mode, error) {
	if (jsonFlag && plainFlag) || (jsonFlag && ndjsonFlag) || (plainFlag && ndjsonFlag) {
		return "", fmt.Errorf("--json, --plain, and --ndjson are mutually exclusive")
	}
	if ndjsonFlag {
		return ModeNDJSON, nil
	}
	if jsonFlag {
		return ModeJSON, nil
	}
	if plainFlag || !stdoutIsTTY {
		return ModePlain, nil
	}
	return ModeHuman, nil
}

func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func WriteJSON(out io.Writer, data any, meta Meta) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(Envelope{Data: data, Meta: meta})
}

func WritePlain(out io.Writer, rows [][]string) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(out, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// WriteNDJSON writes one compact JSON document per item.
func WriteNDJSON[T any](out io.Writer, items []T) error {
	enc := json.NewEncoder(out)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func WriteTable(out io.Writer, headers []string, rows [][]string) error {
	return WriteTableWidth(out, headers, rows, 0)
}

// WriteTableWidth is WriteTable with every cell cut to at most maxCell runes.
// A non-positive maxCell leaves cells whole.
func WriteTableWidth(out io.Writer, headers []string, rows [][]string, maxCell int) error {
	t := newTable(headers, rows, maxCell)
	if len(t.widths) == 0 {
		return nil
	}
	if len(t.headers) > 0 {
		if err := t.line(out, t.headers, ' '); err != nil {
			return err
		}
		if err := t.line(out, nil, '-'); err != nil {
			return err
		}
	}
	for _, row := range t.rows {
		if err := t.line(out, row, ' '); err != nil {
			return err
		}
	}
	return nil
}

// table holds cleaned cells and the rune width of every column.
type table struct {
	headers []string
	rows    [][]string
	widths  []int
}

func newTable(headers []string, rows [][]string, maxCell int) table {
	t := table{headers: cleanRow(headers, maxCell)}
	cols := len(t.headers)
	for _, row := range rows {
		cleaned := cleanRow(row, maxCell)
		t.rows = append(t.rows, cleaned)
		cols = max(cols, len(cleaned))
	}
	t.widths = make([]int, cols)
	t.measure(t.headers)
	for _, row := range t.rows {
		t.measure(row)
	}
	return t
}

func (t table) measure(row []string) {
	for i, cell := range row {
		t.widths[i] = max(t.widths[i], utf8.RuneCountInString(cell))
	}
}

// line writes row padded to the column widths. A nil row with fill '-'
// draws the header rule.
func (t table) line(out io.Writer, row []string, fill rune) error {
	var b strings.Builder
	for i, width := range t.widths {
		if i > 0 {
			b.WriteString("  ")
		}
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		b.WriteString(cell)
		if pad := width - utf8.RuneCountInString(cell); pad > 0 {
			b.WriteString(strings.Repeat(string(fill), pad))
		}
	}
	_, err := fmt.Fprintln(out, b.String())
	return err
}

func cleanRow(row []string, maxCell int) []string {
	if row == nil {
		return nil
	}
	replacer := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = Truncate(strings.TrimSpace(replacer.Replace(cell)), maxCell)
	}
	return out
}

// Truncate shortens value to max runes, marking the cut with "...".
func Truncate(value string, max int) string {
	if max <= 0 || utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
