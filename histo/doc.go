// Package histo implements the histogram accumulators a session attaches as pipes.
//
// An accumulator owns a fixed-size bin array and, for every event it receives, applies the
// configured transform and increments one bin:
//
//  1. the time coordinate (DLD sum or TDC time data) is reduced by the modulo, if non-zero;
//  2. each axis value is divided by its binning factor (a power of two);
//  3. the binned coordinate must lie in the half-open region of interest
//     [offset, offset+size) on every axis, otherwise the event is dropped;
//  4. the flat index is computed with the fastest-varying axis first.
//
// Axes that are not part of the bin array (for instance the time axis of an XY image)
// still filter events, so they act as integration ranges.
//
// Bins never wrap. An increment of a bin that already holds the maximum value of the
// configured depth is dropped and counted, see Histogram.Saturated.
//
// Supported kinds and their shapes:
//
//	Kind3D   [sx, sy, st]   index = x + y*sx + t*sx*sy
//	KindXY   [sx, sy]       index = x + y*sx
//	KindXT   [sx, st]       index = x + t*sx
//	KindYT   [sy, st]       index = y + t*sy
//	KindT    [st]           index = t
//	KindTDC  [size]         index = t, after the channel filter
package histo
