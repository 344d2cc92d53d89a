package db

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nickyhof/TableDB/op"
)

// Request is one command of the JSON request protocol.
type Request struct {
	Op string `json:"op"`

	Table  string         `json:"table,omitempty"`
	Schema *op.Schema     `json:"schema,omitempty"`
	ID     int64          `json:"id,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`

	Select  []string      `json:"select,omitempty"`
	Where   []WhereClause `json:"where,omitempty"`
	OrderBy *OrderClause  `json:"order_by,omitempty"`
	Column  string        `json:"column,omitempty"`
	Into    string        `json:"into,omitempty"` // export target for select/join

	Left        string `json:"left,omitempty"`
	Right       string `json:"right,omitempty"`
	LeftColumn  string `json:"left_column,omitempty"`
	RightColumn string `json:"right_column,omitempty"`

	Message string `json:"message,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

type WhereClause struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

type OrderClause struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// ParseRequest decodes one JSON request. Numbers become int64 when integral
// and float64 otherwise, so they meet the column validators as Go values.
func ParseRequest(data []byte) (Request, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	decoder.DisallowUnknownFields()

	var req Request
	if err := decoder.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	for key, value := range req.Fields {
		req.Fields[key] = normalizeNumber(value)
	}
	for i := range req.Where {
		req.Where[i].Value = normalizeNumber(req.Where[i].Value)
	}
	return req, nil
}

func normalizeNumber(value any) any {
	n, ok := value.(json.Number)
	if !ok {
		return value
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
