package domain

import (
	"fmt"
	"strings"
)

// Operation names a gate's boolean function.
type Operation string

const (
	OpAND  Operation = "AND"
	OpOR   Operation = "OR"
	OpNOT  Operation = "NOT"
	OpXOR  Operation = "XOR"
	OpNAND Operation = "NAND"
	OpNOR  Operation = "NOR"
)

// Operations lists every supported gate in palette order.
var Operations = []Operation{OpAND, OpOR, OpNOT, OpXOR, OpNAND, OpNOR}

// ParseOperation is case-insensitive.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return op, nil
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpAND, OpOR, OpNOT, OpXOR, OpNAND, OpNOR:
		return true
	}
	return false
}

// Arity is the number of input handles the gate reads.
func (op Operation) Arity() int {
	if op == OpNOT {
		return 1
	}
	return 2
}

// Evaluate is the truth table. NOT reads only a. Unknown operations yield false.
func Evaluate(op Operation, a, b bool) bool {
	switch op {
	case OpAND:
		return a && b
	case OpOR:
		return a || b
	case OpNOT:
		return !a
	case OpXOR:
		return a != b
	case OpNAND:
		return !(a && b)
	case OpNOR:
		return !(a || b)
	}
	return false
}

// UnmarshalText accepts any casing.
func (op *Operation) UnmarshalText(b []byte) error {
	parsed, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
