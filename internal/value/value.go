// Package value defines the tagged scalar type used to carry row data
// between the source and destination databases. Keeping values tagged (and
// numerics in exact form) avoids the silent precision loss that comes from
// funnelling everything through float64.
package value

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Kind identifies which scalar variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindText
	KindBytes
	KindTime
	KindUUID
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar. The zero Value is NULL.
type Value struct {
	kind    Kind
	boolVal bool
	intVal  int64
	fltVal  float64
	decVal  pgtype.Numeric
	txtVal  string
	binVal  []byte
	timeVal time.Time
	uuidVal uuid.UUID
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, intVal: i} }

// Float wraps a float64. Only used for source columns that are themselves
// inexact (real, double precision); exact numerics go through Decimal.
func Float(f float64) Value { return Value{kind: KindFloat, fltVal: f} }

// Decimal wraps an arbitrary-precision numeric.
func Decimal(n pgtype.Numeric) Value { return Value{kind: KindDecimal, decVal: n} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, txtVal: s} }

// Bytes wraps a byte slice.
func Bytes(b []byte) Value { return Value{kind: KindBytes, binVal: b} }

// Time wraps a timestamp.
func Time(t time.Time) Value { return Value{kind: KindTime, timeVal: t} }

// UUID wraps an identifier.
func UUID(u uuid.UUID) Value { return Value{kind: KindUUID, uuidVal: u} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// FromAny converts a value as produced by pgx row scanning into a tagged
// Value. Unrecognized types are an error rather than a lossy guess.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return Text(t), nil
	case []byte:
		b := make([]byte, len(t))
		copy(b, t)
		return Bytes(b), nil
	case time.Time:
		return Time(t), nil
	case pgtype.Numeric:
		if !t.Valid {
			return Null(), nil
		}
		return Decimal(t), nil
	case [16]byte:
		return UUID(uuid.UUID(t)), nil
	case uuid.UUID:
		return UUID(t), nil
	}
	return Value{}, fmt.Errorf("unsupported scalar type %T", raw)
}

// Arg returns the value in a form suitable as a pgx statement parameter.
// Decimals stay in pgtype.Numeric form so the wire value is exact.
func (v Value) Arg() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.fltVal
	case KindDecimal:
		return v.decVal
	case KindText:
		return v.txtVal
	case KindBytes:
		return v.binVal
	case KindTime:
		return v.timeVal
	case KindUUID:
		return v.uuidVal.String()
	}
	return nil
}

// String renders the value for logs and dry-run output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return fmt.Sprintf("%t", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		return fmt.Sprintf("%g", v.fltVal)
	case KindDecimal:
		if dv, err := v.decVal.Value(); err == nil {
			return fmt.Sprintf("%v", dv)
		}
		return "<numeric>"
	case KindText:
		return v.txtVal
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.binVal))
	case KindTime:
		return v.timeVal.Format(time.RFC3339Nano)
	case KindUUID:
		return v.uuidVal.String()
	}
	return "<unknown>"
}

// Row maps source column names to scalar values.
type Row map[string]Value

// Get returns the value for col, or NULL when the row has no such key.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return Null()
}

// FromValues converts one scanned row (column names paired with raw pgx
// values) into a Row.
func FromValues(cols []string, raw []any) (Row, error) {
	if len(cols) != len(raw) {
		return nil, fmt.Errorf("column/value count mismatch: %d vs %d", len(cols), len(raw))
	}
	row := make(Row, len(cols))
	for i, col := range cols {
		v, err := FromAny(raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		row[col] = v
	}
	return row, nil
}
