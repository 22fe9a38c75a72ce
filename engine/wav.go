package engine

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

var (
	ErrNotWAV       = errors.New("audio is not a valid WAV file")
	ErrTruncatedWAV = errors.New("wav data chunk is shorter than its header claims")
)

// WAVInfo describes the format of a synthesized clip.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// InspectWAV reads the RIFF header of data and reports its format.
func InspectWAV(data []byte) (WAVInfo, error) {
	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return WAVInfo{}, ErrNotWAV
	}

	if err := dec.FwdToPCM(); err != nil {
		return WAVInfo{}, fmt.Errorf("failed to locate pcm data: %w", err)
	}
	// The reader now sits at the first PCM byte.
	if available := int64(r.Len()); dec.PCMLen() > available {
		return WAVInfo{}, fmt.Errorf("%w: %d bytes declared, %d present", ErrTruncatedWAV, dec.PCMLen(), available)
	}

	info := WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	bytesPerSec := int64(info.SampleRate) * int64(info.Channels) * int64(info.BitDepth) / 8
	if bytesPerSec > 0 {
		info.Duration = time.Duration(dec.PCMLen() * int64(time.Second) / bytesPerSec)
	}
	return info, nil
}
