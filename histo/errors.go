package histo

import "errors"

var (
	// ErrInvalidKind indicates an unknown histogram kind.
	ErrInvalidKind = errors.New("invalid histogram kind")
	// ErrInvalidDepth indicates a bin depth other than 8, 16, 32 or 64 bits.
	ErrInvalidDepth = errors.New("invalid bin depth")
	// ErrBinningNotPowerOfTwo indicates a binning factor that is not a power of two.
	ErrBinningNotPowerOfTwo = errors.New("binning is not a power of two")
	// ErrEmptyROI indicates a region of interest with a zero size on some axis.
	ErrEmptyROI = errors.New("region of interest is empty")
	// ErrTooManyBins indicates that the bin count overflows or exceeds MaxBins.
	ErrTooManyBins = errors.New("too many bins")
	// ErrInvalidChannel indicates a TDC channel selector below -1.
	ErrInvalidChannel = errors.New("invalid channel selector")
	// ErrOffsetOutOfRange indicates a TDC offset that cannot be represented as a signed offset.
	ErrOffsetOutOfRange = errors.New("offset out of range")
)
