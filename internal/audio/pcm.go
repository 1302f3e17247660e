package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/dgnsrekt/drill/internal/tts"
)

// Resample converts 16-bit little-endian PCM between sample rates using
// linear interpolation. Channel layout is preserved.
func Resample(input []byte, channels, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || channels <= 0 {
		return input
	}

	frameSize := 2 * channels
	inFrames := len(input) / frameSize
	if inFrames == 0 {
		return nil
	}

	ratio := float64(toRate) / float64(fromRate)
	outFrames := int(float64(inFrames) * ratio)
	output := make([]byte, outFrames*frameSize)

	sample := func(frame, ch int) float64 {
		off := frame*frameSize + ch*2
		return float64(int16(binary.LittleEndian.Uint16(input[off:])))
	}

	for i := 0; i < outFrames; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)

		for ch := 0; ch < channels; ch++ {
			var v float64
			if idx >= inFrames-1 {
				v = sample(inFrames-1, ch)
			} else {
				v = sample(idx, ch)*(1-frac) + sample(idx+1, ch)*frac
			}
			binary.LittleEndian.PutUint16(output[i*frameSize+ch*2:], uint16(int16(v)))
		}
	}
	return output
}

// ToMono averages interleaved stereo frames.
func ToMono(input []byte) []byte {
	frames := len(input) / 4
	output := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int32(int16(binary.LittleEndian.Uint16(input[i*4:])))
		r := int32(int16(binary.LittleEndian.Uint16(input[i*4+2:])))
		binary.LittleEndian.PutUint16(output[i*2:], uint16(int16((l+r)/2)))
	}
	return output
}

// ToStereo duplicates each mono sample into both channels.
func ToStereo(input []byte) []byte {
	samples := len(input) / 2
	output := make([]byte, samples*4)
	for i := 0; i < samples; i++ {
		copy(output[i*4:], input[i*2:i*2+2])
		copy(output[i*4+2:], input[i*2:i*2+2])
	}
	return output
}

// convert brings a clip to the device format.
func convert(audio tts.Audio, sampleRate, channels int) ([]byte, error) {
	if len(audio.Data) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeAudioFormat, "audio data is empty", nil)
	}
	if audio.Channels == 0 {
		audio.Channels = 1
	}

	data := audio.Data
	switch {
	case audio.Channels == channels:
	case audio.Channels == 2 && channels == 1:
		data = ToMono(data)
	case audio.Channels == 1 && channels == 2:
		data = ToStereo(data)
	default:
		return nil, tts.NewTTSError(tts.ErrorCodeAudioFormat,
			fmt.Sprintf("cannot play %d-channel audio on a %d-channel device", audio.Channels, channels), nil)
	}

	return Resample(data, channels, audio.SampleRate, sampleRate), nil
}
