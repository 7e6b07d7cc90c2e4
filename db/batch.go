package db

// OpBatch is a Batch recording mutations in order. Engines without a native
// batch type replay it inside their own transaction.
type OpBatch struct {
	ops []Op
}

// Op is one recorded mutation; Value is nil for deletes.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

func NewOpBatch() *OpBatch {
	return &OpBatch{}
}

func (b *OpBatch) Put(key, value []byte) {
	b.ops = append(b.ops, Op{Key: clone(key), Value: clone(value)})
}

func (b *OpBatch) Delete(key []byte) {
	b.ops = append(b.ops, Op{Key: clone(key), Delete: true})
}

func (b *OpBatch) Len() int {
	return len(b.ops)
}

func (b *OpBatch) Reset() {
	b.ops = b.ops[:0]
}

// Replay calls fn for each mutation in insertion order, stopping at the first
// error.
func (b *OpBatch) Replay(fn func(Op) error) error {
	for _, op := range b.ops {
		if err := fn(op); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
