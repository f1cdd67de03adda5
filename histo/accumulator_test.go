package histo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-tdc/event"
)

func xyParams() Params {
	return Params{
		Depth:   Depth16,
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI: ROI{
			Offset: Axes3S{},
			Size:   Axes3U{X: 4, Y: 4, T: 1 << 31},
		},
	}
}

func TestAccumulator_XYImage(t *testing.T) {
	require := require.New(t)

	h, err := New(KindXY, xyParams())
	require.NoError(err)
	require.Equal([]int{4, 4}, h.Shape())
	require.Equal(16, h.Len())

	events := []event.DLD{
		{Dif1: 0, Dif2: 0, Sum: 10},
		{Dif1: 1, Dif2: 0, Sum: 20},
		{Dif1: 0, Dif2: 1, Sum: 30},
		{Dif1: 3, Dif2: 3, Sum: 40},
	}
	h.DLDEvents(events)
	h.DLDEvents(events)
	require.Equal(uint64(8), h.Sum())

	h.Clear()
	require.Equal(uint64(0), h.Sum())

	h.DLDEvents(events)
	bins, ok := CopyOf[uint16](h)
	require.True(ok)

	expected := make([]uint16, 16)
	expected[0] = 1
	expected[1] = 1
	expected[4] = 1
	expected[15] = 1
	require.Equal(expected, bins)

	_, ok = CopyOf[uint32](h)
	require.False(ok)
}

func TestAccumulator_SingleBin(t *testing.T) {
	require := require.New(t)

	p := Params{
		Depth:   Depth32,
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI: ROI{
			Offset: Axes3S{X: 5, Y: 6, T: 7},
			Size:   Axes3U{X: 1, Y: 1, T: 1},
		},
	}
	h, err := New(Kind3D, p)
	require.NoError(err)
	require.Equal(1, h.Len())

	inside := event.DLD{Dif1: 5, Dif2: 6, Sum: 7}
	for range 100 {
		h.DLDEvents([]event.DLD{inside})
	}
	// offset+size is excluded on every axis
	h.DLDEvents([]event.DLD{
		{Dif1: 6, Dif2: 6, Sum: 7},
		{Dif1: 5, Dif2: 7, Sum: 7},
		{Dif1: 5, Dif2: 6, Sum: 8},
		{Dif1: 4, Dif2: 6, Sum: 7},
	})

	require.Equal(uint64(100), h.At(0))
}

func TestAccumulator_3DIndex(t *testing.T) {
	require := require.New(t)

	p := Params{
		Depth:   Depth8,
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI:     ROI{Size: Axes3U{X: 2, Y: 3, T: 4}},
	}
	h, err := New(Kind3D, p)
	require.NoError(err)

	h.DLDEvents([]event.DLD{{Dif1: 1, Dif2: 2, Sum: 3}})
	require.Equal(uint64(1), h.At(1+2*2+3*2*3))
	require.Equal(uint64(1), h.Sum())
}

func TestAccumulator_Projections(t *testing.T) {
	p := Params{
		Depth:   Depth32,
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI:     ROI{Size: Axes3U{X: 4, Y: 5, T: 6}},
	}
	ev := event.DLD{Dif1: 3, Dif2: 2, Sum: 5}

	tests := []struct {
		kind  Kind
		index int
	}{
		{KindXY, 3 + 2*4},
		{KindXT, 3 + 5*4},
		{KindYT, 2 + 5*5},
		{KindT, 5},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			h, err := New(tt.kind, p)
			require.NoError(t, err)
			h.DLDEvents([]event.DLD{ev})
			require.Equal(t, uint64(1), h.At(tt.index))
			require.Equal(t, uint64(1), h.Sum())
		})
	}
}

func TestAccumulator_ModuloAndBinning(t *testing.T) {
	require := require.New(t)

	p := Params{
		Depth:   Depth32,
		Modulo:  1000,
		Binning: Axes3U{X: 2, Y: 2, T: 16},
		ROI: ROI{
			Offset: Axes3S{X: -2, Y: 0, T: 10},
			Size:   Axes3U{X: 8, Y: 8, T: 20},
		},
	}
	h, err := New(Kind3D, p)
	require.NoError(err)

	// sum 5200 % 1000 = 200, 200/16 = 12, 12-10 = 2; x 7/2 = 3, 3+2 = 5; y 9/2 = 4
	h.DLDEvents([]event.DLD{{Dif1: 7, Dif2: 9, Sum: 5200}})
	require.Equal(uint64(1), h.At(5+4*8+2*8*8))

	// 100/16 = 6 is below the time offset
	h.DLDEvents([]event.DLD{{Dif1: 7, Dif2: 9, Sum: 100}})
	require.Equal(uint64(1), h.Sum())
}

func TestAccumulator_Saturation(t *testing.T) {
	require := require.New(t)

	p := Params{
		Binning: Axes3U{X: 1, Y: 1, T: 1},
		ROI:     ROI{Size: Axes3U{X: 1, Y: 1, T: 1}},
	}
	acc, err := NewAccumulator[uint8](KindXY, p)
	require.NoError(err)
	require.Equal(Depth8, acc.Params().Depth)

	events := make([]event.DLD, 300)
	acc.DLDEvents(events)

	require.Equal([]uint8{255}, acc.Copy())
	require.Equal(uint64(45), acc.Saturated())

	acc.Clear()
	require.Equal(uint64(0), acc.Saturated())
	require.True(acc.AddDLD(event.DLD{}))
	require.Equal(uint8(1), acc.View()[0])
}

func TestAccumulator_ViewIsLive(t *testing.T) {
	require := require.New(t)

	h, err := New(KindXY, xyParams())
	require.NoError(err)

	view, ok := ViewOf[uint16](h)
	require.True(ok)
	snapshot, _ := CopyOf[uint16](h)

	h.DLDEvents([]event.DLD{{Dif1: 2, Dif2: 1}})
	require.Equal(uint16(1), view[6])
	require.Equal(uint16(0), snapshot[6])
}

func TestAccumulator_TDC(t *testing.T) {
	require := require.New(t)

	h, err := NewTDC(TDCParams{Depth: Depth32, Channel: 1, Binning: 2, Offset: 5, Size: 10})
	require.NoError(err)
	require.Equal(KindTDC, h.Kind())

	h.TDCEvents([]event.TDC{
		{Channel: 1, TimeData: 10}, // 10/2-5 = 0
		{Channel: 1, TimeData: 29}, // 14-5 = 9
		{Channel: 1, TimeData: 30}, // 15-5 = 10, excluded
		{Channel: 1, TimeData: 8},  // 4 < offset
		{Channel: 2, TimeData: 10}, // other channel
	})
	h.DLDEvents([]event.DLD{{Sum: 10}})

	require.Equal(uint64(1), h.At(0))
	require.Equal(uint64(1), h.At(9))
	require.Equal(uint64(2), h.Sum())

	all, err := NewTDC(TDCParams{Depth: Depth8, Channel: -1, Binning: 1, Size: 4})
	require.NoError(err)
	all.TDCEvents([]event.TDC{{Channel: 0, TimeData: 1}, {Channel: 7, TimeData: 1}})
	require.Equal(uint64(2), all.At(1))

	// DLD histograms ignore TDC events
	xy, err := New(KindXY, xyParams())
	require.NoError(err)
	xy.TDCEvents([]event.TDC{{}})
	require.Equal(uint64(0), xy.Sum())
}

func TestAccumulator_NeverOutOfRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, depth := range []Depth{Depth8, Depth16, Depth32, Depth64} {
		for _, kind := range []Kind{Kind3D, KindXY, KindXT, KindYT, KindT} {
			t.Run(depth.String()+"/"+kind.String(), func(t *testing.T) {
				require := require.New(t)

				p := Params{
					Depth:   depth,
					Modulo:  uint64(rng.Intn(2)) * 5000,
					Binning: Axes3U{X: 1 << rng.Intn(3), Y: 1 << rng.Intn(3), T: 1 << rng.Intn(5)},
					ROI: ROI{
						Offset: Axes3S{X: int64(rng.Intn(64) - 32), Y: int64(rng.Intn(64) - 32), T: int64(rng.Intn(100))},
						Size:   Axes3U{X: uint64(rng.Intn(16) + 1), Y: uint64(rng.Intn(16) + 1), T: uint64(rng.Intn(32) + 1)},
					},
				}
				h, err := New(kind, p)
				require.NoError(err)

				events := make([]event.DLD, 2000)
				for i := range events {
					events[i] = event.DLD{
						Dif1: uint16(rng.Intn(128)),
						Dif2: uint16(rng.Intn(128)),
						Sum:  uint64(rng.Int63n(20000)),
					}
				}

				var accepted uint64
				for _, ev := range events {
					a, ok := h.(interface{ AddDLD(event.DLD) bool })
					require.True(ok)
					if a.AddDLD(ev) {
						accepted++
					}
				}

				require.Len(h.Values(), p.Bins(kind))
				require.Equal(accepted, h.Sum())
			})
		}
	}
}
