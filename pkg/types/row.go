package types

// Row is a single query result row, keyed by fully-qualified column name
// (e.g. "p.name" for variable p's name property).
type Row struct {
	values map[string]Value
}

// NewRow creates an empty row.
func NewRow() Row {
	return Row{values: make(map[string]Value)}
}

// Clone returns a shallow copy whose map is independent of the receiver's.
func (r Row) Clone() Row {
	cp := make(map[string]Value, len(r.values))
	for k, v := range r.values {
		cp[k] = v
	}
	return Row{values: cp}
}

// Set assigns a column value, overwriting any existing value.
func (r Row) Set(column string, v Value) {
	r.values[column] = v
}

// Get returns the value for column and whether it was present.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.values) }

// Contains reports whether column is present in the row.
func (r Row) Contains(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns the row's column names in no particular order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r.values))
	for k := range r.values {
		cols = append(cols, k)
	}
	return cols
}

// Range calls fn for every column/value pair in the row.
func (r Row) Range(fn func(column string, v Value) bool) {
	for k, v := range r.values {
		if !fn(k, v) {
			return
		}
	}
}

// QueryResult is the tabular output of executing a query: an ordered
// column list plus the matching rows.
type QueryResult struct {
	Columns []string
	Rows    []Row
}

// NewQueryResult creates an empty result with the given column order.
func NewQueryResult(columns []string) *QueryResult {
	return &QueryResult{Columns: columns}
}

// EmptyQueryResult returns a result with no columns and no rows, used for
// DDL/DML statements that don't project data.
func EmptyQueryResult() *QueryResult {
	return &QueryResult{}
}

// AddRow appends a row to the result.
func (q *QueryResult) AddRow(r Row) {
	q.Rows = append(q.Rows, r)
}

// RowCount returns the number of rows currently in the result.
func (q *QueryResult) RowCount() int { return len(q.Rows) }

// ImportResult builds a result row reporting a CSV import outcome.
func ImportResult(rowsImported, rowsFailed uint64) *QueryResult {
	result := NewQueryResult([]string{"rows_imported", "rows_failed"})
	row := NewRow()
	row.Set("rows_imported", NewInt64(int64(rowsImported)))
	row.Set("rows_failed", NewInt64(int64(rowsFailed)))
	result.AddRow(row)
	return result
}

// ExplainResult wraps a rendered plan string for EXPLAIN output.
func ExplainResult(planText string) *QueryResult {
	result := NewQueryResult([]string{"plan"})
	row := NewRow()
	row.Set("plan", NewString(planText))
	result.AddRow(row)
	return result
}
