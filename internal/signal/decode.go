package signal

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for byte streams that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode turns a WAV or MP3 byte stream into mono samples in [-1, 1].
func Decode(data []byte) ([]float64, error) {
	switch {
	case len(data) == 0:
		return nil, errors.New("empty audio stream")
	case isWAV(data):
		return decodeWAV(data)
	case isMP3(data):
		return decodeMP3(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return true
	}
	// MPEG frame sync: 11 set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) ([]float64, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}
	channels := int(d.NumChans)
	if channels <= 0 {
		return nil, errors.New("wav has no channels")
	}
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned.
		offset = 128
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]-offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}

func decodeMP3(data []byte) ([]float64, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("read mp3 pcm: %w", err)
	}
	return stereo16ToMono(pcm), nil
}

// stereo16ToMono averages interleaved 16-bit little-endian stereo frames, the
// only layout go-mp3 emits. A trailing partial frame is dropped.
func stereo16ToMono(pcm []byte) []float64 {
	const frameBytes = 4
	frames := len(pcm) / frameBytes
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		r := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		out[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return out
}
