package service

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/stemsi/proctored-mcq/internal/model"
)

// Randomizer draws question subsets, shuffles option labels and grades answers
// against the shuffled arrangement.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer creates a Randomizer. A nil source uses the runtime's global generator.
func NewRandomizer(src rand.Source) *Randomizer {
	r := &Randomizer{}
	if src != nil {
		r.rng = rand.New(src)
	}
	return r
}

func (r *Randomizer) shuffle(n int, swap func(i, j int)) {
	if r.rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	r.mu.Lock()
	r.rng.Shuffle(n, swap)
	r.mu.Unlock()
}

// SelectSubset samples k distinct questions uniformly without replacement.
// The result is shuffled again so ordinal order carries no storage order.
func (r *Randomizer) SelectSubset(pool []model.Question, k int) ([]model.Question, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: subset size %d", ErrInsufficientPool, k)
	}
	if len(pool) < k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPool, len(pool), k)
	}

	picked := make([]model.Question, len(pool))
	copy(picked, pool)
	r.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	picked = picked[:k]
	r.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked, nil
}

// PermuteOptions returns a uniform random arrangement of A, B, C and D.
func (r *Randomizer) PermuteOptions() model.Permutation {
	p := model.CanonicalOptions
	r.shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// Grade reports whether the label picked from permutation p is the canonical
// correct option. The position of selected within p maps to the canonical
// label at that position.
func Grade(p model.Permutation, selected, correct model.OptionLabel) bool {
	for i, l := range p {
		if l == selected {
			return model.CanonicalOptions[i] == correct
		}
	}
	return false
}
