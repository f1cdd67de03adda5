package histo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validParams() Params {
	return Params{
		Depth:   Depth32,
		Channel: -1,
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI: ROI{
			Offset: Axes3S{},
			Size:   Axes3U{X: 4, Y: 4, T: 8},
		},
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		desc    string
		kind    Kind
		modify  func(p *Params)
		wantErr error
	}{
		{"valid 3d", Kind3D, func(*Params) {}, nil},
		{"invalid kind", Kind(42), func(*Params) {}, ErrInvalidKind},
		{"invalid depth", KindXY, func(p *Params) { p.Depth = Depth(7) }, ErrInvalidDepth},
		{"binning zero", KindXY, func(p *Params) { p.Binning.X = 0 }, ErrBinningNotPowerOfTwo},
		{"binning three", KindXY, func(p *Params) { p.Binning.T = 3 }, ErrBinningNotPowerOfTwo},
		{"empty y", KindXT, func(p *Params) { p.ROI.Size.Y = 0 }, ErrEmptyROI},
		{"too many bins", Kind3D, func(p *Params) { p.ROI.Size = Axes3U{X: 1 << 10, Y: 1 << 10, T: 1 << 10} }, ErrTooManyBins},
		{"huge integration axis", KindXY, func(p *Params) { p.ROI.Size.T = 1 << 40 }, nil},
		{"overflowing product", Kind3D, func(p *Params) { p.ROI.Size = Axes3U{X: 1 << 40, Y: 1 << 40, T: 1 << 40} }, ErrTooManyBins},
		{"tdc ignores xy binning", KindTDC, func(p *Params) { p.Binning.X = 3 }, nil},
		{"tdc channel", KindTDC, func(p *Params) { p.Channel = -2 }, ErrInvalidChannel},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			p := validParams()
			tt.modify(&p)
			err := p.Validate(tt.kind)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParams_Shape(t *testing.T) {
	require := require.New(t)

	p := validParams()
	p.ROI.Size = Axes3U{X: 2, Y: 3, T: 5}

	require.Equal([]int{2, 3, 5}, p.Shape(Kind3D))
	require.Equal([]int{2, 3}, p.Shape(KindXY))
	require.Equal([]int{2, 5}, p.Shape(KindXT))
	require.Equal([]int{3, 5}, p.Shape(KindYT))
	require.Equal([]int{5}, p.Shape(KindT))
	require.Equal(30, p.Bins(Kind3D))
	require.Equal(15, p.Bins(KindYT))
}

func TestDepth(t *testing.T) {
	require := require.New(t)

	require.Equal(8, Depth8.Bits())
	require.Equal(64, Depth64.Bits())
	require.Equal(uint64(0xff), Depth8.Max())
	require.Equal(uint64(0xffff), Depth16.Max())
	require.Equal(uint64(0xffffffff), Depth32.Max())
	require.Equal(^uint64(0), Depth64.Max())
	require.Equal("16bit", Depth16.String())
	require.False(Depth(4).Valid())
}

func TestTDCParams(t *testing.T) {
	require := require.New(t)

	p, err := TDCParams{Depth: Depth16, Channel: 2, Binning: 4, Offset: 10, Size: 100}.Params()
	require.NoError(err)
	require.Equal(Axes3U{X: 1, Y: 1, T: 4}, p.Binning)
	require.Equal(int64(10), p.ROI.Offset.T)
	require.Equal([]int{100}, p.Shape(KindTDC))
	require.NoError(p.Validate(KindTDC))

	_, err = TDCParams{Offset: 1 << 63}.Params()
	require.ErrorIs(err, ErrOffsetOutOfRange)
}
