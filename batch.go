package secokv

import "fmt"

// OpKind selects what a batch Op does.
type OpKind uint8

const (
	OpSet OpKind = iota + 1
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is one entry of a batch. Value is ignored for OpDelete.
type Op struct {
	Kind  OpKind
	Key   string
	Value Value
}

// SetOp returns an Op storing v under key.
func SetOp(key string, v Value) Op {
	return Op{Kind: OpSet, Key: key, Value: v}
}

// DeleteOp returns an Op removing key.
func DeleteOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// apply runs ops against doc in order.
func apply(doc Document, ops []Op) {
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			doc[op.Key] = op.Value
		case OpDelete:
			delete(doc, op.Key)
		}
	}
}

func validate(ops []Op) error {
	for i, op := range ops {
		if op.Kind != OpSet && op.Kind != OpDelete {
			return fmt.Errorf("%w: entry %d has kind %s", ErrInvalidOp, i, op.Kind)
		}
	}
	return nil
}
