package op

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/nickyhof/TableDB/core"
)

// RowSource is anything a Query can scan. Implementations must return rows
// the caller may keep; *Table and *JoinedView both qualify.
type RowSource interface {
	SelectAll() []core.Row
}

type Operator int

const (
	Eq Operator = iota
	Gt
	Lt
	Ge
	Le
	Ne
)

var operatorSymbols = map[Operator]string{
	Eq: "=",
	Gt: ">",
	Lt: "<",
	Ge: ">=",
	Le: "<=",
	Ne: "!=",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator maps one of = > < >= <= != to an Operator.
func ParseOperator(symbol string) (Operator, error) {
	for o, s := range operatorSymbols {
		if s == symbol {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownOperator, symbol)
}

// Apply evaluates left <op> right.
func (o Operator) Apply(left, right any) bool {
	switch o {
	case Eq:
		return valuesEqual(left, right)
	case Ne:
		return !valuesEqual(left, right)
	}

	result, ok := compareValues(left, right)
	if !ok {
		return false
	}
	switch o {
	case Gt:
		return result > 0
	case Lt:
		return result < 0
	case Ge:
		return result >= 0
	case Le:
		return result <= 0
	default:
		return false
	}
}

// Condition is one filter clause of a query.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
}

func (c Condition) matches(row core.Row) bool {
	return c.Operator.Apply(row.Value(c.Column), c.Value)
}

type sortKey struct {
	column    string
	ascending bool
}

// Query is a chainable select/filter/sort/aggregate builder. Building never
// touches the source; every terminal call scans it again.
type Query struct {
	source     RowSource
	columns    []string
	conditions []Condition
	order      *sortKey
}

func NewQuery(source RowSource) *Query {
	return &Query{source: source}
}

// Select restricts Execute output to the named columns.
func (q *Query) Select(columns ...string) *Query {
	q.columns = slices.Clone(columns)
	return q
}

// Where adds a clause; clauses are combined with AND.
func (q *Query) Where(column string, operator Operator, value any) *Query {
	q.conditions = append(q.conditions, Condition{Column: column, Operator: operator, Value: value})
	return q
}

// OrderBy sets the sort key, replacing any earlier one.
func (q *Query) OrderBy(column string, ascending bool) *Query {
	q.order = &sortKey{column: column, ascending: ascending}
	return q
}

func (q *Query) matches(row core.Row) bool {
	for _, cond := range q.conditions {
		if !cond.matches(row) {
			return false
		}
	}
	return true
}

func (q *Query) filtered() []core.Row {
	var rows []core.Row
	for _, row := range q.source.SelectAll() {
		if q.matches(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// Execute returns the filtered rows, sorted and projected when requested.
func (q *Query) Execute() []core.Row {
	rows := q.filtered()

	if q.order != nil {
		key := *q.order
		slices.SortStableFunc(rows, func(a, b core.Row) int {
			c := sortCompare(a.Value(key.column), b.Value(key.column))
			if !key.ascending {
				return -c
			}
			return c
		})
	}

	if len(q.columns) == 0 {
		return rows
	}

	results := make([]core.Row, len(rows))
	for i, row := range rows {
		fields := make(map[string]any, len(q.columns))
		for _, col := range q.columns {
			if value, ok := row.Get(col); ok {
				fields[col] = value
			}
		}
		results[i] = core.Row{Fields: fields}
	}
	return results
}

// Count is the number of rows passing the filter.
func (q *Query) Count() int {
	return len(q.filtered())
}

// total adds the non-nil values of column across filtered rows. Integers
// are summed exactly; any float turns the result into a float.
func (q *Query) total(column string) (sum Number, count int, err error) {
	integer := new(big.Int)
	var float float64
	floats := false

	for _, row := range q.filtered() {
		value := row.Value(column)
		if value == nil {
			continue
		}
		if i, ok := bigInteger(value); ok {
			integer.Add(integer, i)
		} else if f, ok := toFloat(value); ok {
			float += f
			floats = true
		} else {
			return Number{}, 0, fmt.Errorf("%w: %s = %v (%T)", core.ErrNotNumeric, column, value, value)
		}
		count++
	}

	if floats {
		return FloatNumber(Number{integer: integer}.Float64() + float), count, nil
	}
	return Number{integer: integer}, count, nil
}

// Sum adds the non-nil values of column; integer columns sum exactly.
func (q *Query) Sum(column string) (Number, error) {
	sum, _, err := q.total(column)
	return sum, err
}

// Avg is the mean of non-nil values; 0 when no row contributes.
func (q *Query) Avg(column string) (float64, error) {
	sum, count, err := q.total(column)
	if err != nil || count == 0 {
		return 0, err
	}
	if !sum.IsInteger() {
		return sum.Float64() / float64(count), nil
	}
	mean := new(big.Float).SetInt(sum.integer)
	mean.Quo(mean, new(big.Float).SetInt64(int64(count)))
	f, _ := mean.Float64()
	return f, nil
}
