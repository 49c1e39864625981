package vm

// Iterator is the runtime's lazy sequence abstraction. Next returns false
// once the sequence is exhausted.
type Iterator interface {
	Next() (Value, bool, error)
}

// DoubleEndedIterator can also be consumed from the back. Both ends draw
// from the same remaining sequence.
type DoubleEndedIterator interface {
	Iterator
	NextBack() (Value, bool, error)
}

func NewIteratorValue(it Iterator) *IteratorValue {
	return &IteratorValue{Iter: it}
}
