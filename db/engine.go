package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/op"
	"github.com/nickyhof/TableDB/ps"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownOp     = errors.New("unknown op")
	ErrNoPersistence = errors.New("no persistence attached")
)

// Engine executes requests against one registry.
type Engine struct {
	registry    *op.Registry
	persistence *ps.Persistence
	identity    core.Identity
	s3          S3Config
	logger      *slog.Logger
}

type EngineOption func(*Engine)

// WithPersistence enables the snapshot and history ops.
func WithPersistence(persistence *ps.Persistence, identity core.Identity) EngineOption {
	return func(e *Engine) {
		e.persistence = persistence
		e.identity = identity
	}
}

// WithS3 sets the credentials used for s3:// export targets.
func WithS3(cfg S3Config) EngineOption {
	return func(e *Engine) { e.s3 = cfg }
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(registry *op.Registry, opts ...EngineOption) *Engine {
	engine := &Engine{
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (engine *Engine) Registry() *op.Registry {
	return engine.registry
}

// As returns a copy of engine that authors snapshots as identity.
func (engine *Engine) As(identity core.Identity) *Engine {
	clone := *engine
	clone.identity = identity
	return &clone
}

// ExecuteJSON parses one request line and executes it.
func (engine *Engine) ExecuteJSON(ctx context.Context, data []byte) (Result, error) {
	req, err := ParseRequest(data)
	if err != nil {
		return nil, err
	}
	return engine.Execute(ctx, req)
}

func (engine *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := engine.dispatch(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		engine.logger.Debug("request failed", "op", req.Op, "table", req.Table, "error", err)
		return nil, err
	}

	switch r := result.(type) {
	case QueryResult:
		r.ExecutionTimeSec = elapsed.Seconds()
		result = r
	case CommitResult:
		r.ExecutionTimeSec = elapsed.Seconds()
		result = r
	}

	engine.logger.Debug("request executed", "op", req.Op, "table", req.Table, "duration", elapsed)
	return result, nil
}

func (engine *Engine) dispatch(ctx context.Context, req Request) (Result, error) {
	switch req.Op {
	case "create_table":
		return engine.createTable(req)
	case "insert":
		return engine.insert(req)
	case "get":
		return engine.get(req)
	case "update":
		return engine.update(req)
	case "delete":
		return engine.delete(req)
	case "select":
		return engine.selectRows(ctx, req)
	case "count", "sum", "avg":
		return engine.aggregate(req)
	case "join":
		return engine.join(ctx, req)
	case "tables":
		return TablesResult{Names: engine.registry.TableNames()}, nil
	case "describe":
		return engine.describe(req)
	case "snapshot":
		return engine.snapshot(req)
	case "history":
		return engine.history()
	case "":
		return nil, fmt.Errorf("%w: op is required", ErrBadRequest)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
}

func (engine *Engine) table(req Request) (*op.Table, error) {
	if req.Table == "" {
		return nil, fmt.Errorf("%w: %s needs a table", ErrBadRequest, req.Op)
	}
	return engine.registry.GetTable(req.Table)
}

func (engine *Engine) createTable(req Request) (Result, error) {
	if req.Table == "" || req.Schema == nil {
		return nil, fmt.Errorf("%w: create_table needs table and schema", ErrBadRequest)
	}
	if _, err := engine.registry.CreateTableFromSchema(req.Table, *req.Schema); err != nil {
		return nil, err
	}
	return CommitResult{TablesCreated: 1}, nil
}

func (engine *Engine) insert(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	row, err := table.Insert(req.Fields)
	if err != nil {
		return nil, err
	}
	return CommitResult{RecordsWritten: 1, LastInsertID: row.ID}, nil
}

func (engine *Engine) get(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	row, ok := table.GetByID(req.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s id %d", core.ErrNotFound, table.Name(), req.ID)
	}
	return QueryResult{Columns: columnNames(table.Columns()), Rows: []core.Row{row}, RecordsRead: 1}, nil
}

func (engine *Engine) update(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	if _, err := table.Update(req.ID, req.Fields); err != nil {
		return nil, err
	}
	return CommitResult{RecordsWritten: 1}, nil
}

func (engine *Engine) delete(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	result := CommitResult{}
	if table.Delete(req.ID) {
		result.RecordsDeleted = 1
	}
	return result, nil
}

func (engine *Engine) selectRows(ctx context.Context, req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	return engine.runQuery(ctx, table, columnNames(table.Columns()), req)
}

func (engine *Engine) join(ctx context.Context, req Request) (Result, error) {
	if req.Left == "" || req.Right == "" || req.LeftColumn == "" || req.RightColumn == "" {
		return nil, fmt.Errorf("%w: join needs left, right, left_column and right_column", ErrBadRequest)
	}
	left, err := engine.registry.GetTable(req.Left)
	if err != nil {
		return nil, err
	}
	right, err := engine.registry.GetTable(req.Right)
	if err != nil {
		return nil, err
	}

	view := op.NewJoinedView(left, right, req.LeftColumn, req.RightColumn)
	return engine.runQuery(ctx, view, view.Columns(), req)
}

func (engine *Engine) buildQuery(source op.RowSource, req Request) (*op.Query, error) {
	q := op.NewQuery(source)
	for _, clause := range req.Where {
		operator, err := op.ParseOperator(clause.Op)
		if err != nil {
			return nil, err
		}
		q.Where(clause.Column, operator, clause.Value)
	}
	if req.OrderBy != nil {
		q.OrderBy(req.OrderBy.Column, !req.OrderBy.Desc)
	}
	if len(req.Select) > 0 {
		q.Select(req.Select...)
	}
	return q, nil
}

func (engine *Engine) runQuery(ctx context.Context, source op.RowSource, columns []string, req Request) (Result, error) {
	q, err := engine.buildQuery(source, req)
	if err != nil {
		return nil, err
	}
	if len(req.Select) > 0 {
		columns = req.Select
	}

	rows := q.Execute()
	if req.Into != "" {
		if err := engine.export(ctx, req.Into, rows); err != nil {
			return nil, err
		}
	}
	return QueryResult{Columns: columns, Rows: rows, RecordsRead: len(rows)}, nil
}

// export writes rows to path as JSON lines.
func (engine *Engine) export(ctx context.Context, path string, rows []core.Row) error {
	sink, err := CreateSink(ctx, path, engine.s3)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(sink)
	for _, row := range rows {
		if err := encoder.Encode(row.Fields); err != nil {
			sink.Close()
			return fmt.Errorf("failed to export to %s: %w", path, err)
		}
	}
	if err := sink.Close(); err != nil {
		return err
	}

	engine.logger.Info("rows exported", "target", path, "rows", len(rows))
	return nil
}

func (engine *Engine) aggregate(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	q, err := engine.buildQuery(table, req)
	if err != nil {
		return nil, err
	}

	result := AggregateResult{Op: req.Op, Column: req.Column}
	switch req.Op {
	case "count":
		result.Value = op.IntNumber(int64(q.Count()))
		return result, nil
	case "sum":
		if req.Column == "" {
			return nil, fmt.Errorf("%w: sum needs a column", ErrBadRequest)
		}
		result.Value, err = q.Sum(req.Column)
	case "avg":
		if req.Column == "" {
			return nil, fmt.Errorf("%w: avg needs a column", ErrBadRequest)
		}
		var avg float64
		avg, err = q.Avg(req.Column)
		result.Value = op.FloatNumber(avg)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (engine *Engine) describe(req Request) (Result, error) {
	table, err := engine.table(req)
	if err != nil {
		return nil, err
	}
	return SchemaResult{Table: table.Name(), Schema: op.Describe(table.Columns())}, nil
}

func (engine *Engine) snapshot(req Request) (Result, error) {
	if engine.persistence == nil {
		return nil, ErrNoPersistence
	}

	// The tag is checked up front so a taken name leaves no commit behind.
	if req.Tag != "" {
		exists, err := engine.persistence.HasTag(req.Tag)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ps.ErrTagExists, req.Tag)
		}
	}

	txn, err := engine.persistence.SaveRegistry(engine.registry, engine.identity, req.Message)
	if err != nil {
		return nil, err
	}
	if req.Tag != "" {
		if _, err := engine.persistence.Tag(req.Tag, &txn); err != nil {
			return nil, err
		}
	}

	engine.logger.Info("snapshot committed", "registry", engine.registry.Name(), "transaction", txn.ID)
	return CommitResult{Transaction: txn}, nil
}

func (engine *Engine) history() (Result, error) {
	if engine.persistence == nil {
		return nil, ErrNoPersistence
	}
	txns, err := engine.persistence.TransactionsSince(time.Time{})
	if err != nil {
		return nil, err
	}
	return HistoryResult{Transactions: txns}, nil
}

func columnNames(columns []core.Column) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return names
}
