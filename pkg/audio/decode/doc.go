// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides Decoder interface and implementations for PCM, WAV, FLAC, MP3 and a test tone
// Package decode provides audio decoders for various codecs.
//
// Supports: raw PCM (16-bit and 24-bit), WAV, FLAC, MP3 and a sine test tone.
//
// All decoders implement the Decoder interface and output interleaved int32
// samples in 24-bit range for consistent hi-res audio processing.
//
// Example:
//
//	dec, err := decode.Open(ctx, "song.flac", decode.OpenOptions{})
//	n, err := dec.Read(samples)
package decode
