package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("row not found")
	ErrDuplicateTable  = errors.New("table already exists")
	ErrUnknownTable    = errors.New("unknown table")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNotPrimaryKey   = errors.New("foreign key must reference a primary key column")
	ErrUnknownType     = errors.New("unknown column type")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrInvalidSchema   = errors.New("invalid schema")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrNotNumeric      = errors.New("value is not numeric")
)

// ValidationError reports the first column whose value was rejected.
type ValidationError struct {
	Table  string
	Column string
	Value  any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for column %s.%s: %v", e.Table, e.Column, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
