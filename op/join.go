package op

import (
	"fmt"

	"github.com/nickyhof/TableDB/core"
)

// JoinedView is an eagerly materialized inner equality join of two tables.
// It is a snapshot: later writes to either table are not reflected until
// Rebuild is called.
type JoinedView struct {
	name        string
	left        *Table
	right       *Table
	leftColumn  string
	rightColumn string
	leftPrefix  string
	rightPrefix string
	rows        []core.Row
}

type ViewOption func(*JoinedView)

// WithViewName overrides the default "<left>_join_<right>" name.
func WithViewName(name string) ViewOption {
	return func(v *JoinedView) { v.name = name }
}

// NewJoinedView joins left and right on left.leftColumn = right.rightColumn
// with the same equality as Eq, so nil keys pair up. Fields are prefixed
// "<table>."; when a table is joined to itself the right side uses
// "<table>_2." instead.
func NewJoinedView(left, right *Table, leftColumn, rightColumn string, opts ...ViewOption) *JoinedView {
	view := &JoinedView{
		name:        fmt.Sprintf("%s_join_%s", left.Name(), right.Name()),
		left:        left,
		right:       right,
		leftColumn:  leftColumn,
		rightColumn: rightColumn,
		leftPrefix:  left.Name() + ".",
		rightPrefix: right.Name() + ".",
	}
	if left == right {
		view.rightPrefix = right.Name() + "_2."
	}
	for _, opt := range opts {
		opt(view)
	}
	view.Rebuild()
	return view
}

func (v *JoinedView) Name() string {
	return v.name
}

// Columns lists the prefixed output columns, left table first.
func (v *JoinedView) Columns() []string {
	var columns []string
	for _, col := range v.left.Columns() {
		columns = append(columns, v.leftPrefix+col.Name)
	}
	for _, col := range v.right.Columns() {
		columns = append(columns, v.rightPrefix+col.Name)
	}
	return columns
}

// Rebuild recomputes the view from the current contents of both tables.
func (v *JoinedView) Rebuild() {
	leftRows, rightRows := v.scanSources()

	rows := make([]core.Row, 0)
	for _, l := range leftRows {
		for _, r := range rightRows {
			if !valuesEqual(l.Value(v.leftColumn), r.Value(v.rightColumn)) {
				continue
			}

			fields := make(map[string]any, len(l.Fields)+len(r.Fields))
			for k, value := range l.Fields {
				fields[v.leftPrefix+k] = value
			}
			for k, value := range r.Fields {
				fields[v.rightPrefix+k] = value
			}
			rows = append(rows, core.Row{Fields: fields})
		}
	}
	v.rows = rows
}

// scanSources reads both tables while holding read access to both, so the
// join never observes one table mid-write relative to the other.
func (v *JoinedView) scanSources() (leftRows, rightRows []core.Row) {
	if v.left == v.right {
		v.left.mu.RLock()
		defer v.left.mu.RUnlock()
		rows := v.left.snapshotLocked()
		return rows, rows
	}

	// Fixed lock order keeps two views over the same pair from deadlocking
	// behind a waiting writer.
	first, second := v.left, v.right
	if second.name < first.name {
		first, second = second, first
	}
	first.mu.RLock()
	defer first.mu.RUnlock()
	second.mu.RLock()
	defer second.mu.RUnlock()
	return v.left.snapshotLocked(), v.right.snapshotLocked()
}

// Rows returns copies of the view rows in left-major, right-minor order.
func (v *JoinedView) Rows() []core.Row {
	rows := make([]core.Row, len(v.rows))
	for i, row := range v.rows {
		rows[i] = row.Clone()
	}
	return rows
}

// SelectAll makes a JoinedView usable as a Query source.
func (v *JoinedView) SelectAll() []core.Row {
	return v.Rows()
}

func (v *JoinedView) Len() int {
	return len(v.rows)
}
