// ABOUTME: Software volume and mute applied to device-format bytes
// ABOUTME: Handles the volume/mute control commands for drivers without hardware mixers
package output

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
)

// softVolume holds per-side gain in percent. It is set from the control
// side and read from the device callback, so every field is atomic.
type softVolume struct {
	left  atomic.Uint64 // math.Float64bits of percent
	right atomic.Uint64
	muted atomic.Bool
}

func newSoftVolume() *softVolume {
	v := &softVolume{}
	v.set(pull.Volume{Left: 100, Right: 100})
	return v
}

func (v *softVolume) get() pull.Volume {
	return pull.Volume{
		Left:  math.Float64frombits(v.left.Load()),
		Right: math.Float64frombits(v.right.Load()),
	}
}

func (v *softVolume) set(vol pull.Volume) {
	v.left.Store(math.Float64bits(clampPercent(vol.Left)))
	v.right.Store(math.Float64bits(clampPercent(vol.Right)))
}

func clampPercent(p float64) float64 {
	return max(0, min(100, p))
}

// control implements the volume and mute commands
func (v *softVolume) control(cmd pull.Command, arg any) pull.ControlResult {
	switch cmd {
	case pull.CmdGetVolume, pull.CmdSetVolume:
		vol, ok := arg.(*pull.Volume)
		if !ok || vol == nil {
			return pull.ControlError
		}
		if cmd == pull.CmdGetVolume {
			*vol = v.get()
		} else {
			v.set(*vol)
		}
		return pull.ControlOK
	case pull.CmdGetMute, pull.CmdSetMute:
		m, ok := arg.(*bool)
		if !ok || m == nil {
			return pull.ControlError
		}
		if cmd == pull.CmdGetMute {
			*m = v.muted.Load()
		} else {
			v.muted.Store(*m)
		}
		return pull.ControlOK
	}
	return pull.ControlUnknown
}

// gain returns the multiplier for a channel. Channel 0 is left, 1 is right
// and any further channels get the average.
func (v *softVolume) gain(ch int) float64 {
	if v.muted.Load() {
		return 0
	}
	l := math.Float64frombits(v.left.Load())
	r := math.Float64frombits(v.right.Load())
	switch ch {
	case 0:
		return l / 100
	case 1:
		return r / 100
	}
	return (l + r) / 200
}

func (v *softVolume) unity() bool {
	return !v.muted.Load() &&
		math.Float64frombits(v.left.Load()) == 100 &&
		math.Float64frombits(v.right.Load()) == 100
}

// apply scales frames of audio in place. Packed buffers interleave channels
// within planes[0]; planar buffers hold one channel per plane.
func (v *softVolume) apply(planes [][]byte, frames, channels int, f audio.SampleFormat) {
	if v.unity() {
		return
	}
	if v.muted.Load() {
		n := frames * f.BytesPerSample()
		if !f.IsPlanar() {
			n *= channels
		}
		for _, p := range planes {
			audio.FillSilence(p[:n], f)
		}
		return
	}

	bps := f.BytesPerSample()
	if f.IsPlanar() {
		for ch, p := range planes {
			scaleSamples(p[:frames*bps], bps, 1, ch, v, f)
		}
		return
	}
	scaleSamples(planes[0][:frames*bps*channels], bps, channels, 0, v, f)
}

// scaleSamples applies gain to consecutive samples. Sample i belongs to
// channel first + i%channels.
func scaleSamples(buf []byte, bps, channels, first int, v *softVolume, f audio.SampleFormat) {
	for i := 0; i*bps < len(buf); i++ {
		g := v.gain(first + i%channels)
		s := buf[i*bps : (i+1)*bps]
		switch f.Packed() {
		case audio.SampleU8:
			s[0] = byte(clampInt(int64(float64(int(s[0])-128)*g), -128, 127) + 128)
		case audio.SampleS16:
			x := int16(binary.LittleEndian.Uint16(s))
			y := clampInt(int64(float64(x)*g), math.MinInt16, math.MaxInt16)
			binary.LittleEndian.PutUint16(s, uint16(int16(y)))
		case audio.SampleS24:
			x := audio.SampleFrom24Bit([3]byte{s[0], s[1], s[2]})
			b := audio.SampleTo24Bit(int32(clampInt(int64(float64(x)*g), audio.Min24Bit, audio.Max24Bit)))
			copy(s, b[:])
		case audio.SampleS32:
			x := int32(binary.LittleEndian.Uint32(s))
			y := clampInt(int64(float64(x)*g), math.MinInt32, math.MaxInt32)
			binary.LittleEndian.PutUint32(s, uint32(int32(y)))
		case audio.SampleF32:
			x := math.Float32frombits(binary.LittleEndian.Uint32(s))
			binary.LittleEndian.PutUint32(s, math.Float32bits(float32(float64(x)*g)))
		}
	}
}

func clampInt(v, lo, hi int64) int64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
