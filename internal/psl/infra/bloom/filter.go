package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/psl-updater/internal/psl/services/verifier"
)

// Filter wraps a bits-and-blooms BloomFilter. It is built fresh for each
// verified document and is not safe for concurrent use.
type Filter struct {
	bf *bitsbloom.BloomFilter
}

// New returns a Filter sized for capacity keys at the target false-positive rate.
func New(capacity uint64, fpRate float64) *Filter {
	m, k := Size(capacity, fpRate)
	return &Filter{bf: bitsbloom.New(uint(m), uint(k))}
}

func (f *Filter) Add(key []byte) {
	f.bf.Add(key)
}

func (f *Filter) MightContain(key []byte) bool {
	return f.bf.Test(key)
}

// factory implements verifier.FilterFactory.
type factory struct{}

// NewFactory returns a FilterFactory that sizes filters from capacity and FP rate.
func NewFactory() verifier.FilterFactory { return factory{} }

// New constructs a Filter for the given dataset capacity and false-positive rate.
func (factory) New(capacity uint64, fpRate float64) verifier.Filter {
	return New(capacity, fpRate)
}

var _ verifier.Filter = (*Filter)(nil)
