package matching

import (
	apperrors "github.com/oggyb/pature/internal/errors"
)

// Pair is an ordered pair of distinct user ids. The zero value is not a
// valid pair; build one with NormalizePair.
type Pair struct {
	lo, hi uint64
}

// NormalizePair orders a and b ascending. It is the only way to obtain a
// Pair, so every match read and write is keyed the same way.
func NormalizePair(a, b uint64) (Pair, error) {
	if a == b {
		return Pair{}, apperrors.ErrSelfMatchNotAllowed
	}
	if a > b {
		a, b = b, a
	}
	return Pair{lo: a, hi: b}, nil
}

func (p Pair) Lo() uint64 { return p.lo }
func (p Pair) Hi() uint64 { return p.hi }

// IsZero reports whether p was not produced by NormalizePair.
func (p Pair) IsZero() bool { return p.lo == 0 && p.hi == 0 }
