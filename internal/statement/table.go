package statement

import "strconv"

// Recognised column names, matched after trimming and lowercasing the CSV header.
const (
	ColNarration   = "narration"
	ColDescription = "description"
	ColAmount      = "amount"
	ColDebitAmount = "debit amount"
	ColCategory    = "category"
	ColDate        = "date"
)

// Row holds one cell per table column, in column order.
type Row []Value

// Table is an in-memory statement: named columns and rows in file order.
//
// Exported methods never mutate the receiver, so a Table may be shared
// between goroutines once built. Pipeline stages work on clones.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable builds a table. Duplicate column names get a ".N" suffix and
// short rows are padded with nulls.
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, name := range columns {
		unique := name
		for n := 1; ; n++ {
			if _, taken := t.index[unique]; !taken {
				break
			}
			unique = name + "." + strconv.Itoa(n)
		}
		t.index[unique] = len(t.columns)
		t.columns = append(t.columns, unique)
	}

	t.rows = make([]Row, len(rows))
	for i, r := range rows {
		row := make(Row, len(t.columns))
		copy(row, r)
		t.rows[i] = row
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Value returns the cell at row i of column, or null when the column is absent.
func (t *Table) Value(i int, column string) Value {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Null()
	}
	return t.rows[i][j]
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]string, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    make([]Row, len(t.rows)),
	}
	copy(out.columns, t.columns)
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, r := range t.rows {
		row := make(Row, len(r))
		copy(row, r)
		out.rows[i] = row
	}
	return out
}

// Slice returns rows [offset, offset+limit) as a new table. Out of range
// bounds yield an empty table.
func (t *Table) Slice(offset, limit int) *Table {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	start := min(offset, len(t.rows))
	end := min(start+limit, len(t.rows))
	return NewTable(t.columns, t.rows[start:end])
}

// Records renders every row as an ordered record keyed by column name.
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.rows))
	for _, r := range t.rows {
		rec := make(Record, len(t.columns))
		for j, name := range t.columns {
			rec[j] = Field{Name: name, Value: r[j]}
		}
		out = append(out, rec)
	}
	return out
}

// withColumn returns a clone that has column, appending it filled with nulls
// when missing.
func (t *Table) withColumn(column string) *Table {
	out := t.Clone()
	if out.Has(column) {
		return out
	}
	out.index[column] = len(out.columns)
	out.columns = append(out.columns, column)
	for i := range out.rows {
		out.rows[i] = append(out.rows[i], Null())
	}
	return out
}

// set writes a cell in place. Only used on tables a stage owns.
func (t *Table) set(i int, column string, v Value) {
	if j, ok := t.index[column]; ok {
		t.rows[i][j] = v
	}
}

// filter returns a new table with the rows for which keep is true, in order.
func (t *Table) filter(keep func(i int) bool) (*Table, int) {
	kept := make([]Row, 0, len(t.rows))
	dropped := 0
	for i, r := range t.rows {
		if keep(i) {
			kept = append(kept, r)
			continue
		}
		dropped++
	}
	return NewTable(t.columns, kept), dropped
}
