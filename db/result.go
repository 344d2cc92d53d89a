package db

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/op"
	"github.com/nickyhof/TableDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	AggregateResultType
	TablesResultType
	SchemaResultType
	HistoryResultType
)

var resultTypeNames = map[ResultType]string{
	QueryResultType:     "query",
	CommitResultType:    "commit",
	AggregateResultType: "aggregate",
	TablesResultType:    "tables",
	SchemaResultType:    "schema",
	HistoryResultType:   "history",
}

func (t ResultType) String() string {
	if name, ok := resultTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ResultType(%d)", int(t))
}

// Result is what Execute returns. Display renders it for a terminal.
type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

type QueryResult struct {
	Columns          []string   `json:"columns"`
	Rows             []core.Row `json:"rows"`
	RecordsRead      int        `json:"records_read"`
	ExecutionTimeSec float64    `json:"execution_time_sec"`
}

type CommitResult struct {
	Transaction      ps.Transaction `json:"transaction,omitzero"`
	TablesCreated    int            `json:"tables_created,omitempty"`
	RecordsWritten   int            `json:"records_written,omitempty"`
	RecordsDeleted   int            `json:"records_deleted,omitempty"`
	LastInsertID     int64          `json:"last_insert_id,omitempty"`
	ExecutionTimeSec float64        `json:"execution_time_sec"`
}

// AggregateResult carries count, sum or avg. Integer sums are exact.
type AggregateResult struct {
	Op     string    `json:"op"`
	Column string    `json:"column,omitempty"`
	Value  op.Number `json:"value"`
}

type TablesResult struct {
	Names []string `json:"names"`
}

type SchemaResult struct {
	Table  string    `json:"table"`
	Schema op.Schema `json:"schema"`
}

type HistoryResult struct {
	Transactions []ps.Transaction `json:"transactions"`
}

func (QueryResult) Type() ResultType     { return QueryResultType }
func (CommitResult) Type() ResultType    { return CommitResultType }
func (AggregateResult) Type() ResultType { return AggregateResultType }
func (TablesResult) Type() ResultType    { return TablesResultType }
func (SchemaResult) Type() ResultType    { return SchemaResultType }
func (HistoryResult) Type() ResultType   { return HistoryResultType }

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 60:
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	default:
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

// FormatValue renders a stored value for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(core.DateLayout)
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func newTableWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Rows) > 0 {
		withID := result.Rows[0].ID != 0

		t := newTableWriter(w)
		header := make(table.Row, 0, len(result.Columns)+1)
		if withID {
			header = append(header, "#")
		}
		for _, col := range result.Columns {
			header = append(header, col)
		}
		t.AppendHeader(header)

		for _, row := range result.Rows {
			line := make(table.Row, 0, len(header))
			if withID {
				line = append(line, row.ID)
			}
			for _, col := range result.Columns {
				line = append(line, FormatValue(row.Value(col)))
			}
			t.AppendRow(line)
		}
		t.Render()
	}

	fmt.Fprintf(w, "%d rows (%s)\n", len(result.Rows), formatDuration(result.ExecutionTimeSec))
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}
	if result.LastInsertID > 0 {
		parts = append(parts, fmt.Sprintf("id %d", result.LastInsertID))
	}
	if !result.Transaction.IsZero() {
		parts = append(parts, "snapshot "+shortID(result.Transaction.ID))
	}

	summary := "OK"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	fmt.Fprintf(w, "%s (%s)\n", summary, formatDuration(result.ExecutionTimeSec))
}

func (result AggregateResult) Display(w io.Writer) {
	label := result.Op
	if result.Column != "" {
		label = fmt.Sprintf("%s(%s)", result.Op, result.Column)
	}
	fmt.Fprintf(w, "%s = %s\n", label, result.Value)
}

func (result TablesResult) Display(w io.Writer) {
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"table"})
	for _, name := range result.Names {
		t.AppendRow(table.Row{name})
	}
	t.Render()
}

func (result SchemaResult) Display(w io.Writer) {
	t := newTableWriter(w)
	t.SetTitle(result.Table)
	t.AppendHeader(table.Row{"column", "type", "nullable", "key", "references"})
	for _, col := range result.Schema.Columns {
		typ := col.Type
		if col.MaxLength != nil {
			typ = fmt.Sprintf("%s(%d)", typ, *col.MaxLength)
		}
		key := ""
		if col.PrimaryKey {
			key = "PK"
		}
		ref := ""
		if len(col.ForeignKey) == 2 {
			ref = col.ForeignKey[0] + "." + col.ForeignKey[1]
		}
		t.AppendRow(table.Row{col.Name, typ, col.Nullable == nil || *col.Nullable, key, ref})
	}
	t.Render()
}

func (result HistoryResult) Display(w io.Writer) {
	t := newTableWriter(w)
	t.AppendHeader(table.Row{"snapshot", "when", "author", "message"})
	for _, txn := range result.Transactions {
		t.AppendRow(table.Row{shortID(txn.ID), txn.When.Format(time.RFC3339), txn.Author, txn.Message})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
