package translation

import "sync/atomic"

// Sequence implements last-submitted-wins for translation completions.
type Sequence struct {
	latest atomic.Uint64
}

type Ticket struct {
	seq *Sequence
	n   uint64
}

func (s *Sequence) Next() Ticket {
	return Ticket{seq: s, n: s.latest.Add(1)}
}

// Current reports whether no newer ticket has been issued since t.
func (t Ticket) Current() bool {
	return t.seq != nil && t.seq.latest.Load() == t.n
}
