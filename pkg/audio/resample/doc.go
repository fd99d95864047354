// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded audio between sample rates and channel counts
// Package resample provides sample rate and channel count conversion.
//
// Resampler works on interleaved int32 chunks and keeps state between calls.
// Wrap puts it in front of any decode.Decoder:
//
//	dec = resample.Wrap(dec, 48000, 2)
package resample
