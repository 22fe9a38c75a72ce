package models

import "time"

// Clip is a synthesized WAV kept in memory until Expiry.
type Clip struct {
	ID         string
	Audio      []byte
	Text       string
	SampleRate int
	Channels   int
	Duration   time.Duration
	Created    string
	Expiry     string
}
