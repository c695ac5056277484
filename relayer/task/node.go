package task

import (
	"context"
	"fmt"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
)

// Kind is the payload of a Fetch, Aggregate or Wait node. Every consensus
// family defines its own closed set of kinds and a Handler that switches
// over them.
type Kind interface {
	Family() string
	String() string
}

// Node is a vertex of the task graph.
type Node interface {
	isNode()
}

// Fetch performs one read. The handler returns the next node, which is
// usually Data but may be more work.
type Fetch struct {
	Kind Kind
}

// Aggregate resolves all Deps in parallel and hands their values, in Deps
// order, to the handler once every one of them is available.
type Aggregate struct {
	Deps []Node
	Kind Kind
}

// Wait polls the handler until the condition holds.
type Wait struct {
	Kind Kind
}

// Sequence resolves Steps one at a time. Its value is the slice of the step
// values.
type Sequence struct {
	Steps []Node
}

// Data is an already known value.
type Data struct {
	Value any
}

func (Fetch) isNode()     {}
func (Aggregate) isNode() {}
func (Wait) isNode()      {}
func (Sequence) isNode()  {}
func (Data) isNode()      {}

func Describe(n Node) string {
	switch node := n.(type) {
	case Fetch:
		return "fetch " + node.Kind.String()
	case Aggregate:
		return fmt.Sprintf("aggregate %s (%d deps)", node.Kind.String(), len(node.Deps))
	case Wait:
		return "wait " + node.Kind.String()
	case Sequence:
		return fmt.Sprintf("sequence (%d steps)", len(node.Steps))
	case Data:
		return "data"
	default:
		return fmt.Sprintf("unknown node %T", n)
	}
}

type Handler interface {
	Fetch(ctx context.Context, kind Kind) (Node, error)
	Aggregate(ctx context.Context, kind Kind, inputs []any) (Node, error)
	// Wait reports whether the condition holds. When it does, value is the
	// result of the node.
	Wait(ctx context.Context, kind Kind) (value any, done bool, err error)
}

// Input casts the i-th aggregate input to T.
func Input[T any](inputs []any, i int) (T, error) {
	var zero T
	if i >= len(inputs) {
		return zero, types.Fatalf(types.ErrFatal, "missing aggregate input %d, got %d inputs", i, len(inputs))
	}
	value, ok := inputs[i].(T)
	if !ok {
		return zero, types.Fatalf(types.ErrFatal, "aggregate input %d has type %T, expected %T", i, inputs[i], zero)
	}
	return value, nil
}
