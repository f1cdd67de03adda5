package histo

import (
	"fmt"
	"math"

	"github.com/arloliu/go-tdc/internal/util"
)

// MaxBins is the largest number of bins a single histogram may allocate.
const MaxBins = 1 << 28

// Kind identifies the layout of a histogram.
type Kind int

const (
	Kind3D Kind = iota
	KindXY
	KindXT
	KindYT
	KindT
	KindTDC
)

func (k Kind) String() string {
	switch k {
	case Kind3D:
		return "3d"
	case KindXY:
		return "xy"
	case KindXT:
		return "xt"
	case KindYT:
		return "yt"
	case KindT:
		return "t"
	case KindTDC:
		return "tdc"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= Kind3D && k <= KindTDC
}

// Depth is the bit width of a bin. The values match the device library.
type Depth int

const (
	Depth8 Depth = iota
	Depth16
	Depth32
	Depth64
)

// Valid reports whether d is a supported depth.
func (d Depth) Valid() bool {
	return d >= Depth8 && d <= Depth64
}

// Bits returns the bit width of a bin, or 0 for an invalid depth.
func (d Depth) Bits() int {
	if !d.Valid() {
		return 0
	}

	return 8 << d
}

// Max returns the largest value a bin of depth d can hold.
func (d Depth) Max() uint64 {
	if !d.Valid() {
		return 0
	}
	if d == Depth64 {
		return math.MaxUint64
	}

	return 1<<uint(d.Bits()) - 1
}

func (d Depth) String() string {
	if !d.Valid() {
		return fmt.Sprintf("depth(%d)", int(d))
	}

	return fmt.Sprintf("%dbit", d.Bits())
}

// Axes3U holds an unsigned value per axis.
type Axes3U struct {
	X uint64
	Y uint64
	T uint64
}

// Axes3S holds a signed value per axis.
type Axes3S struct {
	X int64
	Y int64
	T int64
}

// ROI is a region of interest. On every axis the binned coordinate c is inside when
// Offset <= c < Offset+Size.
type ROI struct {
	Offset Axes3S
	Size   Axes3U
}

// Params configures a histogram.
type Params struct {
	Depth Depth
	// Channel selects the TDC channel, -1 selects all channels. Only used by KindTDC.
	Channel int
	// Modulo is applied to the time coordinate before binning when non-zero.
	Modulo  uint64
	Binning Axes3U
	ROI     ROI
}

// Validate checks p against the requirements of kind.
func (p Params) Validate(kind Kind) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if !p.Depth.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, int(p.Depth))
	}

	if kind == KindTDC {
		if p.Channel < -1 {
			return fmt.Errorf("%w: %d", ErrInvalidChannel, p.Channel)
		}
		if !util.IsPowerOfTwo(p.Binning.T) {
			return fmt.Errorf("%w: t=%d", ErrBinningNotPowerOfTwo, p.Binning.T)
		}
		if p.ROI.Size.T == 0 {
			return fmt.Errorf("%w: t", ErrEmptyROI)
		}
	} else {
		for _, axis := range []struct {
			name    string
			binning uint64
			size    uint64
		}{
			{"x", p.Binning.X, p.ROI.Size.X},
			{"y", p.Binning.Y, p.ROI.Size.Y},
			{"t", p.Binning.T, p.ROI.Size.T},
		} {
			if !util.IsPowerOfTwo(axis.binning) {
				return fmt.Errorf("%w: %s=%d", ErrBinningNotPowerOfTwo, axis.name, axis.binning)
			}
			if axis.size == 0 {
				return fmt.Errorf("%w: %s", ErrEmptyROI, axis.name)
			}
		}
	}

	factors := make([]uint64, 0, 3)
	for _, s := range p.Shape(kind) {
		factors = append(factors, uint64(s))
	}
	if _, overflow := util.MulOverflows(MaxBins, factors...); overflow {
		return fmt.Errorf("%w: shape %v exceeds %d bins", ErrTooManyBins, p.Shape(kind), MaxBins)
	}

	return nil
}

// Shape returns the per-axis sizes of the bin array of kind, fastest-varying axis first.
// Sizes that do not fit in an int are reported as math.MaxInt.
func (p Params) Shape(kind Kind) []int {
	s := p.ROI.Size
	switch kind {
	case Kind3D:
		return []int{clampInt(s.X), clampInt(s.Y), clampInt(s.T)}
	case KindXY:
		return []int{clampInt(s.X), clampInt(s.Y)}
	case KindXT:
		return []int{clampInt(s.X), clampInt(s.T)}
	case KindYT:
		return []int{clampInt(s.Y), clampInt(s.T)}
	case KindT, KindTDC:
		return []int{clampInt(s.T)}
	default:
		return nil
	}
}

// Bins returns the total number of bins of kind. The result is only meaningful for params
// that passed Validate.
func (p Params) Bins(kind Kind) int {
	n := 1
	for _, s := range p.Shape(kind) {
		n *= s
	}

	return n
}

// TDCParams configures a one-dimensional time histogram of TDC events.
type TDCParams struct {
	Depth Depth
	// Channel selects the TDC channel, -1 selects all channels.
	Channel int
	Modulo  uint64
	Binning uint64
	// Offset is subtracted from the binned time.
	Offset uint64
	// Size is the number of bins.
	Size uint64
}

// Params converts tp into the general histogram parameters of KindTDC.
func (tp TDCParams) Params() (Params, error) {
	if tp.Offset > math.MaxInt64 {
		return Params{}, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, tp.Offset)
	}

	return Params{
		Depth:   tp.Depth,
		Channel: tp.Channel,
		Modulo:  tp.Modulo,
		Binning: Axes3U{X: 1, Y: 1, T: tp.Binning},
		ROI: ROI{
			Offset: Axes3S{T: int64(tp.Offset)},
			Size:   Axes3U{X: 1, Y: 1, T: tp.Size},
		},
	}, nil
}

func clampInt(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}

	return int(v)
}
