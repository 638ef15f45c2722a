package normalize

// Sequence hands out surrogate keys for a single run.
type Sequence struct {
	next int64
}

// NewSequence returns a sequence whose first value is start.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next key.
func (s *Sequence) Next() int64 {
	v := s.next
	s.next++
	return v
}
