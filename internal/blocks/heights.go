package blocks

import "iter"

// Descending yields at most count heights starting at start and moving
// downwards. Height 0 is never yielded, so the sequence ends early when the
// walk reaches the genesis block.
func Descending(start uint64, count int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := 0; i < count; i++ {
			if uint64(i) >= start {
				return
			}
			if !yield(start - uint64(i)) {
				return
			}
		}
	}
}
