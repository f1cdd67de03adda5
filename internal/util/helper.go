package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// CloneOrNil clones src, keeping nil as nil so that an absent column stays absent.
func CloneOrNil[T any](src []T) []T {
	if src == nil {
		return nil
	}

	return CloneSlice(src, len(src))
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo[T ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// MulOverflows multiplies the factors and reports whether the product exceeds limit.
// A zero factor yields zero without overflow.
func MulOverflows(limit uint64, factors ...uint64) (uint64, bool) {
	product := uint64(1)
	for _, f := range factors {
		if f == 0 {
			return 0, false
		}
		if product > limit/f {
			return 0, true
		}
		product *= f
	}

	return product, product > limit
}
