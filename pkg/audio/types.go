// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, stream formats and silence/packing helpers
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFormat is the in-memory layout of one sample as the device consumes it
type SampleFormat int

const (
	SampleUnknown SampleFormat = iota
	SampleU8
	SampleS16
	SampleS24 // packed, 3 bytes
	SampleS32
	SampleF32
	SampleU8P
	SampleS16P
	SampleS32P
	SampleF32P
)

var sampleFormatNames = map[SampleFormat]string{
	SampleU8:   "u8",
	SampleS16:  "s16",
	SampleS24:  "s24",
	SampleS32:  "s32",
	SampleF32:  "f32",
	SampleU8P:  "u8p",
	SampleS16P: "s16p",
	SampleS32P: "s32p",
	SampleF32P: "f32p",
}

// String returns the short name used in config files ("s16", "f32p", ...)
func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(f))
}

// ParseSampleFormat converts a short name back to a SampleFormat
func ParseSampleFormat(name string) (SampleFormat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range sampleFormatNames {
		if n == name {
			return f, nil
		}
	}
	return SampleUnknown, fmt.Errorf("unknown sample format: %q", name)
}

// BytesPerSample returns the size of one sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleU8, SampleU8P:
		return 1
	case SampleS16, SampleS16P:
		return 2
	case SampleS24:
		return 3
	case SampleS32, SampleS32P, SampleF32, SampleF32P:
		return 4
	default:
		return 0
	}
}

// IsPlanar reports whether each channel is stored in its own plane
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case SampleU8P, SampleS16P, SampleS32P, SampleF32P:
		return true
	}
	return false
}

// IsUnsigned reports whether silence is the mid-point rather than zero
func (f SampleFormat) IsUnsigned() bool {
	return f == SampleU8 || f == SampleU8P
}

// IsFloat reports whether samples are IEEE floats
func (f SampleFormat) IsFloat() bool {
	return f == SampleF32 || f == SampleF32P
}

// Packed returns the interleaved variant of a planar format
func (f SampleFormat) Packed() SampleFormat {
	switch f {
	case SampleU8P:
		return SampleU8
	case SampleS16P:
		return SampleS16
	case SampleS32P:
		return SampleS32
	case SampleF32P:
		return SampleF32
	}
	return f
}

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int          // source bit depth, informational
	Sample     SampleFormat // device-side layout
}

// Planes returns how many separate buffers one block of this format needs
func (f Format) Planes() int {
	if f.Sample.IsPlanar() {
		return f.Channels
	}
	return 1
}

// Stride returns bytes per frame per plane
func (f Format) Stride() int {
	if f.Sample.IsPlanar() {
		return f.Sample.BytesPerSample()
	}
	return f.Sample.BytesPerSample() * f.Channels
}

// BytesPerSecond returns the per-plane byte rate
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Stride()
}

// FramesForDuration converts a duration to a frame count at this rate
func (f Format) FramesForDuration(d time.Duration) int {
	return int(int64(f.SampleRate) * int64(d) / int64(time.Second))
}

// String renders e.g. "48000Hz 2ch s16"
func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %s", f.SampleRate, f.Channels, f.Sample)
}

// FillSilence overwrites buf with the neutral value of the sample format
func FillSilence(buf []byte, f SampleFormat) {
	if !f.IsUnsigned() {
		clear(buf)
		return
	}
	for i := range buf {
		buf[i] = 0x80
	}
}

// Pack converts interleaved 24-bit range samples into device bytes.
// Packed formats write into dst[0]; planar formats write channel c into dst[c].
// Returns the number of frames packed.
func Pack(samples []int32, channels int, dst [][]byte, f SampleFormat) int {
	if channels <= 0 {
		return 0
	}
	frames := len(samples) / channels
	bps := f.BytesPerSample()

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := samples[i*channels+ch]
			var out []byte
			if f.IsPlanar() {
				out = dst[ch][i*bps : (i+1)*bps]
			} else {
				off := (i*channels + ch) * bps
				out = dst[0][off : off+bps]
			}
			putSample(out, s, f)
		}
	}
	return frames
}

func putSample(out []byte, s int32, f SampleFormat) {
	switch f.Packed() {
	case SampleU8:
		out[0] = byte((s >> 16) + 128)
	case SampleS16:
		binary.LittleEndian.PutUint16(out, uint16(SampleToInt16(s)))
	case SampleS24:
		b := SampleTo24Bit(s)
		copy(out, b[:])
	case SampleS32:
		binary.LittleEndian.PutUint32(out, uint32(s<<8))
	case SampleF32:
		binary.LittleEndian.PutUint32(out, math.Float32bits(SampleToFloat32(s)))
	}
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleToFloat32 maps the 24-bit range onto [-1, 1)
func SampleToFloat32(sample int32) float32 {
	return float32(sample) / 8388608.0
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
