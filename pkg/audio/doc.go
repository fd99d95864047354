// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleFormat, Format and sample packing functions
// Package audio provides the sample and stream format types shared by the
// pull adapter, its device drivers and the decoders feeding it.
//
//   - SampleFormat: device-side sample layout (u8, s16, s24, s32, f32 and
//     the planar u8p/s16p/s32p/f32p variants)
//   - Format: sample rate, channel count and layout, with helpers for plane
//     count, per-plane stride and byte rate
//
// Decoders hand out interleaved int32 samples in the 24-bit range. Pack turns
// those into device bytes, splitting channels into planes when the format is
// planar, and FillSilence writes the neutral value used for underrun padding.
//
// Example:
//
//	format := audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.SampleS16P}
//	planes := make([][]byte, format.Planes())
//	for i := range planes {
//	    planes[i] = make([]byte, frames*format.Stride())
//	}
//	audio.Pack(samples, format.Channels, planes, format.Sample)
package audio
