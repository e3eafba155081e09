package features

// Table is the tabular view of fetched entities. A row stores only the
// attributes the entity carries; a missing key is a null cell.
type Table struct {
	columns []string
	colSet  map[string]struct{}
	rows    []map[string]string
}

func NewTable(columns ...string) *Table {
	t := &Table{colSet: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(c string) {
	if _, ok := t.colSet[c]; ok {
		return
	}
	t.colSet[c] = struct{}{}
	t.columns = append(t.columns, c)
}

// AddRow appends an entity; unseen keys become new columns.
func (t *Table) AddRow(attrs map[string]string) {
	row := make(map[string]string, len(attrs))
	for k, v := range attrs {
		t.addColumn(k)
		row[k] = v
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

func (t *Table) HasColumn(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.colSet[key]
	return ok
}

// Cell returns the value at row i for key and whether it is non-null.
func (t *Table) Cell(i int, key string) (string, bool) {
	v, ok := t.rows[i][key]
	return v, ok
}

// CountPresent counts rows with a non-null key; empty strings count.
func (t *Table) CountPresent(key string) int {
	if t == nil {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if _, ok := r[key]; ok {
			n++
		}
	}
	return n
}

// CountEqual counts rows whose key equals value exactly.
func (t *Table) CountEqual(key, value string) int {
	if t == nil {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if v, ok := r[key]; ok && v == value {
			n++
		}
	}
	return n
}
