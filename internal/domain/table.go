package domain

// RawTable is an ingested table before any typing: ordered column labels and
// row-major cells. Every row has exactly len(Columns) cells.
type RawTable struct {
	Source  string   // file name or store source label
	Columns []string // labels as found, later canonicalized in place
	Rows    [][]Value
}

// NewRawTable creates an empty table with the given columns.
func NewRawTable(source string, columns []string) *RawTable {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &RawTable{Source: source, Columns: cols}
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *RawTable) AppendRow(cells []Value) {
	row := make([]Value, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Index returns the position of label, or -1.
func (t *RawTable) Index(label string) int {
	for i, c := range t.Columns {
		if c == label {
			return i
		}
	}
	return -1
}

// Column returns a copy of column i as a slice of cells.
func (t *RawTable) Column(i int) []Value {
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// DropColumns removes the columns at the given positions.
func (t *RawTable) DropColumns(drop map[int]bool) {
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(t.Columns))
	for i := range t.Columns {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		t.Rows[r] = nr
	}
	t.Columns = cols
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}
