package rowexec

import (
	"sort"

	"github.com/cuemby/ruzudb/pkg/types"
)

// SkipOperator discards the first n rows of child.
type SkipOperator struct {
	child   Operator
	n       int
	skipped int
}

func NewSkip(child Operator, n int) *SkipOperator {
	return &SkipOperator{child: child, n: n}
}

func (s *SkipOperator) Next() (types.Row, bool, error) {
	for s.skipped < s.n {
		_, ok, err := s.child.Next()
		if err != nil || !ok {
			return types.Row{}, false, err
		}
		s.skipped++
	}
	return s.child.Next()
}

// LimitOperator stops emitting rows after n have been returned.
type LimitOperator struct {
	child   Operator
	n       int
	emitted int
}

func NewLimit(child Operator, n int) *LimitOperator {
	return &LimitOperator{child: child, n: n}
}

func (l *LimitOperator) Next() (types.Row, bool, error) {
	if l.emitted >= l.n {
		return types.Row{}, false, nil
	}
	row, ok, err := l.child.Next()
	if err != nil || !ok {
		return row, ok, err
	}
	l.emitted++
	return row, true, nil
}

// SortKey orders rows by a single column, ascending unless Descending.
type SortKey struct {
	Column     string
	Descending bool
}

// OrderByOperator fully materializes child, sorts, and replays it. This
// is one of two operators in this package (with AggregateOperator)
// that aren't purely streaming,
// since a total order requires seeing every row first.
type OrderByOperator struct {
	child Operator
	keys  []SortKey

	rows   []types.Row
	cursor int
	sorted bool
}

func NewOrderBy(child Operator, keys []SortKey) *OrderByOperator {
	return &OrderByOperator{child: child, keys: keys}
}

func (o *OrderByOperator) materialize() error {
	for {
		row, ok, err := o.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		o.rows = append(o.rows, row)
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		for _, key := range o.keys {
			a, _ := o.rows[i].Get(key.Column)
			b, _ := o.rows[j].Get(key.Column)
			a, b = types.PromoteForComparison(a, b)
			ord, ok := a.Compare(b)
			if !ok || ord == types.Equal {
				continue
			}
			less := ord == types.Less
			if key.Descending {
				less = !less
			}
			return less
		}
		return false
	})
	o.sorted = true
	return nil
}

func (o *OrderByOperator) Next() (types.Row, bool, error) {
	if !o.sorted {
		if err := o.materialize(); err != nil {
			return types.Row{}, false, err
		}
	}
	if o.cursor >= len(o.rows) {
		return types.Row{}, false, nil
	}
	row := o.rows[o.cursor]
	o.cursor++
	return row, true, nil
}

// AggregateFunc is a supported aggregate function.
type AggregateFunc int

const (
	Count AggregateFunc = iota
	Sum
	Avg
	Min
	Max
)

// Aggregation names one output aggregate column.
type Aggregation struct {
	Func   AggregateFunc
	Column string // source column; ignored for Count(*)
	As     string
}

// AggregateOperator groups child's rows by groupBy and computes
// aggregations per group, emitting one row per distinct group. Like
// OrderByOperator, this requires materializing all input first.
type AggregateOperator struct {
	child        Operator
	groupBy      []string
	aggregations []Aggregation

	results []types.Row
	cursor  int
	done    bool
}

func NewAggregate(child Operator, groupBy []string, aggregations []Aggregation) *AggregateOperator {
	return &AggregateOperator{child: child, groupBy: groupBy, aggregations: aggregations}
}

type groupAccumulator struct {
	keyValues []types.Value
	counts    []int64
	sums      []float64
	mins      []types.Value
	maxs      []types.Value
	haveMin   []bool
	haveMax   []bool
}

func (a *AggregateOperator) run() error {
	groups := make(map[string]*groupAccumulator)
	order := make([]string, 0)

	for {
		row, ok, err := a.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		keyValues := make([]types.Value, len(a.groupBy))
		var keyStr string
		for i, col := range a.groupBy {
			v, _ := row.Get(col)
			keyValues[i] = v
			keyStr += v.String() + "\x00"
		}

		acc, exists := groups[keyStr]
		if !exists {
			acc = &groupAccumulator{
				keyValues: keyValues,
				counts:    make([]int64, len(a.aggregations)),
				sums:      make([]float64, len(a.aggregations)),
				mins:      make([]types.Value, len(a.aggregations)),
				maxs:      make([]types.Value, len(a.aggregations)),
				haveMin:   make([]bool, len(a.aggregations)),
				haveMax:   make([]bool, len(a.aggregations)),
			}
			groups[keyStr] = acc
			order = append(order, keyStr)
		}

		for i, agg := range a.aggregations {
			if agg.Func == Count && agg.Column == "" {
				acc.counts[i]++
				continue
			}
			v, ok := row.Get(agg.Column)
			if !ok || v.IsNull() {
				continue
			}
			acc.counts[i]++
			if f, ok := v.AsFloat64(); ok {
				acc.sums[i] += f
			} else if n, ok := v.AsInt64(); ok {
				acc.sums[i] += float64(n)
			}
			if !acc.haveMin[i] {
				acc.mins[i] = v
				acc.haveMin[i] = true
			} else if ord, ok := acc.mins[i].Compare(v); ok && ord == types.Greater {
				acc.mins[i] = v
			}
			if !acc.haveMax[i] {
				acc.maxs[i] = v
				acc.haveMax[i] = true
			} else if ord, ok := acc.maxs[i].Compare(v); ok && ord == types.Less {
				acc.maxs[i] = v
			}
		}
	}

	for _, key := range order {
		acc := groups[key]
		out := types.NewRow()
		for i, col := range a.groupBy {
			out.Set(col, acc.keyValues[i])
		}
		for i, agg := range a.aggregations {
			var result types.Value
			switch agg.Func {
			case Count:
				result = types.NewInt64(acc.counts[i])
			case Sum:
				result = types.NewFloat64(acc.sums[i])
			case Avg:
				if acc.counts[i] == 0 {
					result = types.Null
				} else {
					result = types.NewFloat64(acc.sums[i] / float64(acc.counts[i]))
				}
			case Min:
				result = acc.mins[i]
			case Max:
				result = acc.maxs[i]
			}
			out.Set(agg.As, result)
		}
		a.results = append(a.results, out)
	}
	a.done = true
	return nil
}

func (a *AggregateOperator) Next() (types.Row, bool, error) {
	if !a.done {
		if err := a.run(); err != nil {
			return types.Row{}, false, err
		}
	}
	if a.cursor >= len(a.results) {
		return types.Row{}, false, nil
	}
	row := a.results[a.cursor]
	a.cursor++
	return row, true, nil
}
