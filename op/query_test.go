package op

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/nickyhof/TableDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnValues(rows []core.Row, column string) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row.Value(column)
	}
	return out
}

func TestQueryWhereAndAggregates(t *testing.T) {
	table := numbersTable(t, 10, 20, 30)
	q := NewQuery(table).Where("value", Gt, 10)

	assert.Equal(t, []any{20, 30}, columnValues(q.Execute(), "value"))
	assert.Equal(t, 2, q.Count())

	sum, err := q.Sum("value")
	require.NoError(t, err)
	assert.True(t, sum.IsInteger())
	assert.Equal(t, "50", sum.String())

	avg, err := q.Avg("value")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, avg, 1e-9)
}

func TestQueryAvgOfNoRowsIsZero(t *testing.T) {
	table := numbersTable(t, 10, 20, 30)
	q := NewQuery(table).Where("value", Gt, 100)

	avg, err := q.Avg("value")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	sum, err := q.Sum("value")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.Float64())
	assert.Equal(t, 0, q.Count())
	assert.Empty(t, q.Execute())
}

func TestQueryAggregatesSkipNil(t *testing.T) {
	table := numbersTable(t, 10, nil, 30)
	q := NewQuery(table)

	assert.Equal(t, 3, q.Count())

	sum, err := q.Sum("value")
	require.NoError(t, err)
	assert.Equal(t, 40.0, sum.Float64())

	avg, err := q.Avg("value")
	require.NoError(t, err)
	assert.Equal(t, 20.0, avg)
}

func TestQuerySumIsExactForLargeIntegers(t *testing.T) {
	table := numbersTable(t, int64(9007199254740993), 0)

	sum, err := NewQuery(table).Sum("value")
	require.NoError(t, err)
	got, ok := sum.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), got)

	table = numbersTable(t, int64(math.MaxInt64), int64(math.MaxInt64), uint64(math.MaxUint64))
	sum, err = NewQuery(table).Sum("value")
	require.NoError(t, err)
	_, ok = sum.Int64()
	assert.False(t, ok)
	assert.Equal(t, "36893488147419103229", sum.String())

	data, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.Equal(t, "36893488147419103229", string(data))

	var decoded Number
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0, sum.Int().Cmp(decoded.Int()))
}

// staticSource serves fixed rows, including values no column type accepts.
type staticSource []core.Row

func (s staticSource) SelectAll() []core.Row {
	return []core.Row(s)
}

func TestQuerySumMixedIntegerAndFloat(t *testing.T) {
	source := staticSource{
		core.NewRow(map[string]any{"value": 1}),
		core.NewRow(map[string]any{"value": 2.5}),
		core.NewRow(map[string]any{"value": nil}),
	}

	sum, err := NewQuery(source).Sum("value")
	require.NoError(t, err)
	assert.False(t, sum.IsInteger())
	assert.Equal(t, 3.5, sum.Float64())

	avg, err := NewQuery(source).Avg("value")
	require.NoError(t, err)
	assert.Equal(t, 1.75, avg)
}

func TestQueryAvgOfLargeIntegers(t *testing.T) {
	table := numbersTable(t, int64(9007199254740993), int64(9007199254740995))

	avg, err := NewQuery(table).Avg("value")
	require.NoError(t, err)
	assert.Equal(t, float64(9007199254740994), avg)
}

func TestQueryAggregateNonNumeric(t *testing.T) {
	table := numbersTable(t, 1, 2)

	_, err := NewQuery(table).Sum("label")
	assert.ErrorIs(t, err, core.ErrNotNumeric)

	_, err = NewQuery(table).Avg("label")
	assert.ErrorIs(t, err, core.ErrNotNumeric)
}

func TestQueryOperators(t *testing.T) {
	table := numbersTable(t, 10, 20, 30)

	tests := []struct {
		op   Operator
		want []any
	}{
		{Eq, []any{20}},
		{Ne, []any{10, 30}},
		{Gt, []any{30}},
		{Ge, []any{20, 30}},
		{Lt, []any{10}},
		{Le, []any{10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			rows := NewQuery(table).Where("value", tt.op, 20).Execute()
			assert.Equal(t, tt.want, columnValues(rows, "value"))
		})
	}
}

func TestQueryWhereIsConjunctive(t *testing.T) {
	table := numbersTable(t, 10, 20, 30, 40)

	rows := NewQuery(table).Where("value", Gt, 10).Where("value", Lt, 40).Execute()
	assert.Equal(t, []any{20, 30}, columnValues(rows, "value"))
}

func TestQueryComparesAcrossNumericWidths(t *testing.T) {
	table := numbersTable(t, int64(5), int32(7), uint8(9))

	rows := NewQuery(table).Where("value", Ge, 7.0).Execute()
	assert.Equal(t, []any{int32(7), uint8(9)}, columnValues(rows, "value"))

	assert.Equal(t, 1, NewQuery(table).Where("value", Eq, 5).Count())
}

func TestQueryNilSemantics(t *testing.T) {
	table := numbersTable(t, 10, nil, 30)

	assert.Equal(t, 1, NewQuery(table).Where("value", Eq, nil).Count())
	assert.Equal(t, 2, NewQuery(table).Where("value", Ne, nil).Count())
	assert.Equal(t, 1, NewQuery(table).Where("value", Gt, 10).Count(), "ordering never matches nil")
	assert.Equal(t, 0, NewQuery(table).Where("missing", Gt, 0).Count())
}

func TestQueryIncomparableTypes(t *testing.T) {
	table := numbersTable(t, 10, 20)

	assert.Equal(t, 0, NewQuery(table).Where("value", Gt, "5").Count())
	assert.Equal(t, 0, NewQuery(table).Where("value", Eq, "10").Count())
	assert.Equal(t, 2, NewQuery(table).Where("value", Ne, "10").Count())
}

func TestQueryOrderByIsStableWithNilsFirst(t *testing.T) {
	table := numbersTable(t, 20, nil, 10, 20, nil, 10)

	rows := NewQuery(table).OrderBy("value", true).Execute()
	assert.Equal(t, []any{nil, nil, 10, 10, 20, 20}, columnValues(rows, "value"))
	assert.Equal(t, []any{"b", "e", "c", "f", "a", "d"}, columnValues(rows, "label"))
}

func TestQueryOrderByDescending(t *testing.T) {
	table := numbersTable(t, 20, nil, 10, 20, nil, 10)

	rows := NewQuery(table).OrderBy("value", false).Execute()
	assert.Equal(t, []any{20, 20, 10, 10, nil, nil}, columnValues(rows, "value"))
	assert.Equal(t, []any{"a", "d", "c", "f", "b", "e"}, columnValues(rows, "label"), "ties keep input order")
}

func TestQueryOrderByLastCallWins(t *testing.T) {
	table := numbersTable(t, 2, 1, 3)

	rows := NewQuery(table).OrderBy("label", false).OrderBy("value", true).Execute()
	assert.Equal(t, []any{1, 2, 3}, columnValues(rows, "value"))
}

func TestQuerySelectProjectsNewRows(t *testing.T) {
	table := numbersTable(t, 10, 20)

	rows := NewQuery(table).Select("value", "missing").Execute()
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"value": 10}, rows[0].Fields)
	assert.Zero(t, rows[0].ID)

	rows[0].Fields["value"] = 99
	got, _ := table.GetByID(1)
	assert.Equal(t, 10, got.Value("value"))
}

func TestQueryCountIgnoresSelectAndOrder(t *testing.T) {
	table := numbersTable(t, 10, 20, 30)

	q := NewQuery(table).Select("label").OrderBy("value", false).Where("value", Ge, 20)
	assert.Equal(t, 2, q.Count())

	sum, err := q.Sum("value")
	require.NoError(t, err)
	assert.Equal(t, 50.0, sum.Float64())
}

func TestQueryRescansSource(t *testing.T) {
	table := numbersTable(t, 10)
	q := NewQuery(table).Where("value", Ge, 10)
	assert.Equal(t, 1, q.Count())

	_, err := table.Insert(map[string]any{"value": 15})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Count())

	table.Delete(1)
	assert.Equal(t, []any{15}, columnValues(q.Execute(), "value"))
}

func TestQueryOrdersStringsBoolsAndDates(t *testing.T) {
	table := newTable("mixed", []core.Column{
		core.NewColumn("name", core.String()),
		core.NewColumn("active", core.Boolean()),
		core.NewColumn("joined", core.Date()),
	})
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	for _, fields := range []map[string]any{
		{"name": "carol", "active": true, "joined": day(3)},
		{"name": "alice", "active": false, "joined": day(1)},
		{"name": "bob", "active": true, "joined": day(2)},
	} {
		_, err := table.Insert(fields)
		require.NoError(t, err)
	}

	assert.Equal(t, []any{"alice", "bob", "carol"}, columnValues(NewQuery(table).OrderBy("name", true).Execute(), "name"))
	assert.Equal(t, []any{"alice", "carol", "bob"}, columnValues(NewQuery(table).OrderBy("active", true).Execute(), "name"))
	assert.Equal(t, []any{"carol", "bob", "alice"}, columnValues(NewQuery(table).OrderBy("joined", false).Execute(), "name"))
	assert.Equal(t, 2, NewQuery(table).Where("joined", Gt, day(1)).Count())
	assert.Equal(t, 2, NewQuery(table).Where("active", Eq, true).Count())
}

func TestParseOperator(t *testing.T) {
	for _, symbol := range []string{"=", ">", "<", ">=", "<=", "!="} {
		op, err := ParseOperator(symbol)
		require.NoError(t, err)
		assert.Equal(t, symbol, op.String())
	}

	_, err := ParseOperator("LIKE")
	assert.ErrorIs(t, err, core.ErrUnknownOperator)
}
