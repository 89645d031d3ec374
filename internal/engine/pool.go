package engine

import "math/rand"

// Pool deals the call sequence for one room: every number in 1..90 exactly
// once, uniformly at random. Not safe for concurrent use; the owning room
// serializes access.
type Pool struct {
	remaining []int
}

func NewPool() *Pool {
	nums := make([]int, 0, MaxNumber)
	for n := 1; n <= MaxNumber; n++ {
		nums = append(nums, n)
	}
	return &Pool{remaining: nums}
}

// Next draws one uncalled number. Fails with ErrExhausted once all 90 have
// been dealt.
func (p *Pool) Next() (int, error) {
	if len(p.remaining) == 0 {
		return 0, ErrExhausted
	}
	i := rand.Intn(len(p.remaining))
	n := p.remaining[i]
	p.remaining[i] = p.remaining[len(p.remaining)-1]
	p.remaining = p.remaining[:len(p.remaining)-1]
	return n, nil
}

func (p *Pool) Remaining() int { return len(p.remaining) }
