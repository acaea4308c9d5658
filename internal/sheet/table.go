// Package sheet holds the in-memory tabular model shared by every other
// package: a header row followed by data rows of equal width.
package sheet

import (
	"encoding/json"
	"fmt"
	"strings"

	sgerrors "sheetgenie/internal/errors"
)

// Table is an immutable-by-convention grid. Row 0 is the header. Methods that
// change content return a new Table and leave the receiver untouched.
type Table struct {
	header []string
	rows   [][]Value
}

// New builds a table from raw rows. The header is rendered as text, short rows
// are padded with empty cells and rows longer than the header widen it with
// generated "Column N" names. An empty header row with no wider rows gives a
// zero-width table, the shape left after deleting the last column.
func New(rows [][]Value) (*Table, error) {
	if len(rows) == 0 {
		return nil, sgerrors.New(sgerrors.CodeInvalidRequest, "table has no header row")
	}

	width := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	header := make([]string, width)
	for i := range header {
		if i < len(rows[0]) {
			header[i] = strings.TrimSpace(rows[0][i].String())
		}
		if header[i] == "" {
			header[i] = fmt.Sprintf("Column %d", i+1)
		}
	}

	data := make([][]Value, 0, len(rows)-1)
	for _, row := range rows[1:] {
		data = append(data, padRow(row, width))
	}
	return &Table{header: header, rows: data}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(rows [][]Value) *Table {
	t, err := New(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromAny builds a table from decoded JSON or file cells, cleaning every cell:
// text is trimmed, numeric text becomes a number and fully empty data rows are
// dropped. A grid of zero-width rows keeps its row count.
func FromAny(rows [][]any) (*Table, error) {
	zeroWidth := true
	for _, row := range rows {
		if len(row) > 0 {
			zeroWidth = false
			break
		}
	}
	values := make([][]Value, 0, len(rows))
	for i, row := range rows {
		converted := make([]Value, len(row))
		blank := true
		for j, cell := range row {
			converted[j] = ValueOf(cell)
			if !converted[j].IsEmpty() {
				blank = false
			}
		}
		if i > 0 && blank && !zeroWidth {
			continue
		}
		values = append(values, converted)
	}
	return New(values)
}

// FromStrings is FromAny for string grids such as CSV records.
func FromStrings(rows [][]string) (*Table, error) {
	raw := make([][]any, len(rows))
	for i, row := range rows {
		raw[i] = make([]any, len(row))
		for j, cell := range row {
			raw[i][j] = cell
		}
	}
	return FromAny(raw)
}

func padRow(row []Value, width int) []Value {
	out := make([]Value, width)
	copy(out, row)
	return out
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Columns returns the number of columns.
func (t *Table) Columns() int { return len(t.header) }

// Rows returns the number of data rows (header excluded).
func (t *Table) Rows() int { return len(t.rows) }

// Cell returns the value at data row r, column c.
func (t *Table) Cell(r, c int) Value {
	if r < 0 || r >= len(t.rows) || c < 0 || c >= len(t.header) {
		return Value{}
	}
	return t.rows[r][c]
}

// Row returns a copy of data row r.
func (t *Table) Row(r int) []Value {
	return append([]Value(nil), t.rows[r]...)
}

// Column returns a copy of the cells of column c.
func (t *Table) Column(c int) []Value {
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	rows := make([][]Value, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append([]Value(nil), row...)
	}
	return &Table{header: t.Header(), rows: rows}
}

// Values returns the full grid with the header as row 0.
func (t *Table) Values() [][]Value {
	out := make([][]Value, 0, len(t.rows)+1)
	header := make([]Value, len(t.header))
	for i, name := range t.header {
		header[i] = Text(name)
	}
	out = append(out, header)
	for _, row := range t.rows {
		cp := make([]Value, len(row))
		copy(cp, row)
		out = append(out, cp)
	}
	return out
}

// Strings renders every cell as display text, header included.
func (t *Table) Strings() [][]string {
	grid := t.Values()
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cell.String()
		}
	}
	return out
}

// ResolveColumn finds a column by name: exact match first, then a
// case-insensitive match, then one ignoring whitespace.
func (t *Table) ResolveColumn(name string) (int, error) {
	if idx, ok := t.lookup(name); ok {
		return idx, nil
	}
	return -1, sgerrors.New(sgerrors.CodeColumnNotFound,
		"column %q not found; available columns: %s", name, strings.Join(t.header, ", "))
}

func (t *Table) lookup(name string) (int, bool) {
	for i, h := range t.header {
		if h == name {
			return i, true
		}
	}
	trimmed := strings.TrimSpace(name)
	for i, h := range t.header {
		if strings.EqualFold(h, trimmed) {
			return i, true
		}
	}
	squashed := squash(trimmed)
	if squashed == "" {
		return -1, false
	}
	for i, h := range t.header {
		if squash(h) == squashed {
			return i, true
		}
	}
	return -1, false
}

// sameName matches a header exactly or case-insensitively, never loosely.
func (t *Table) sameName(name string) (int, bool) {
	trimmed := strings.TrimSpace(name)
	for i, h := range t.header {
		if strings.EqualFold(h, trimmed) {
			return i, true
		}
	}
	return -1, false
}

func squash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// HasColumn reports whether name resolves.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

// WithColumn returns a table where column name holds values. An existing
// column with the same name, ignoring case, is overwritten in place; otherwise
// the column is appended.
func (t *Table) WithColumn(name string, values []Value) *Table {
	out := t.Clone()
	idx, ok := out.sameName(name)
	if !ok {
		out.header = append(out.header, name)
		idx = len(out.header) - 1
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], Value{})
		}
	}
	for i := range out.rows {
		if i < len(values) {
			out.rows[i][idx] = values[i]
		} else {
			out.rows[i][idx] = Value{}
		}
	}
	return out
}

// WithoutColumn returns a table without column c. Removing the last column
// leaves the data rows in place with zero width.
func (t *Table) WithoutColumn(c int) *Table {
	out := t.Clone()
	out.header = append(out.header[:c:c], out.header[c+1:]...)
	for i, row := range out.rows {
		out.rows[i] = append(row[:c:c], row[c+1:]...)
	}
	return out
}

// WithCell returns a table with one cell replaced. Grid row 0 is the header,
// so r is a grid row (data row r-1). Writing past the last row appends rows.
func (t *Table) WithCell(r, c int, v Value) (*Table, error) {
	if r < 0 || c < 0 || c >= len(t.header) {
		return nil, sgerrors.New(sgerrors.CodeInvalidRequest,
			"cell (%d, %d) is outside the %d-column grid", r, c, len(t.header))
	}
	out := t.Clone()
	if r == 0 {
		name := strings.TrimSpace(v.String())
		if name == "" {
			return nil, sgerrors.New(sgerrors.CodeInvalidRequest, "column names cannot be empty")
		}
		out.header[c] = name
		return out, nil
	}
	for len(out.rows) < r {
		out.rows = append(out.rows, make([]Value, len(out.header)))
	}
	out.rows[r-1][c] = v
	return out, nil
}

// NumericColumn reports whether more than half of the non-empty cells in
// column c are numbers.
func (t *Table) NumericColumn(c int) bool {
	numeric, filled := 0, 0
	for _, row := range t.rows {
		if row[c].IsEmpty() {
			continue
		}
		filled++
		if row[c].IsNumber() {
			numeric++
		}
	}
	return filled > 0 && numeric*2 > filled
}

// Numbers returns the numeric cells of column c in row order and how many
// non-empty cells were skipped for not being numeric.
func (t *Table) Numbers(c int) (values []float64, skipped int) {
	for _, row := range t.rows {
		if f, ok := row[c].Float(); ok {
			values = append(values, f)
		} else if !row[c].IsEmpty() {
			skipped++
		}
	}
	return values, skipped
}

// CSVLines renders the header plus up to maxRows data rows as comma separated
// lines. maxRows <= 0 renders every row.
func (t *Table) CSVLines(maxRows int) []string {
	lines := make([]string, 0, len(t.rows)+1)
	lines = append(lines, csvLine(t.header))
	for i, row := range t.rows {
		if maxRows > 0 && i >= maxRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		lines = append(lines, csvLine(cells))
	}
	return lines
}

func csvLine(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		if strings.ContainsAny(c, ",\"\n") {
			c = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		quoted[i] = c
	}
	return strings.Join(quoted, ",")
}

// Equal reports whether two tables hold the same header and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.header) != len(o.header) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.header {
		if t.header[i] != o.header[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !t.rows[i][j].Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the table as [[header...], [row...], ...].
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Values())
}

// UnmarshalJSON decodes and cleans a [[header...], [row...], ...] payload.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return sgerrors.Wrap(sgerrors.CodeInvalidRequest, err, "table must be an array of rows")
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
