package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/vyra/internal/shared"
)

// Quality is the requested audio quality tier.
type Quality int

const (
	QualityNormal Quality = iota
	QualityHigh
	QualityVeryHigh
)

// ParseQuality maps "very_high", "high" and "normal" to a [Quality].
// The empty string is [QualityNormal].
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return QualityNormal, nil
	case "high":
		return QualityHigh, nil
	case "very_high":
		return QualityVeryHigh, nil
	default:
		return QualityNormal, fmt.Errorf("%w: unknown quality %q (want very_high, high or normal)", shared.ErrInvalidArgument, s)
	}
}

func (q Quality) String() string {
	switch q {
	case QualityVeryHigh:
		return "very_high"
	case QualityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Candidate is one encoding offered by an upstream provider.
type Candidate struct {
	MimeType string `json:"mimeType"`
	Bitrate  int64  `json:"bitrate"`
	URL      string `json:"url"`
}

// HasAudioPrefix matches Innertube mime types such as "audio/webm; codecs=opus".
func HasAudioPrefix(mime string) bool { return strings.HasPrefix(mime, "audio/") }

// ContainsAudio is the looser match used for secondary providers.
func ContainsAudio(mime string) bool { return strings.Contains(mime, "audio") }

// AudioCandidates keeps the formats whose mime type satisfies match and that carry
// a direct URL, sorted by bitrate from highest to lowest. Equal bitrates keep
// their upstream order.
func AudioCandidates(formats []Candidate, match func(string) bool) []Candidate {
	out := make([]Candidate, 0, len(formats))
	for _, f := range formats {
		if f.URL == "" || !match(f.MimeType) {
			continue
		}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Bitrate > out[j].Bitrate })
	return out
}

// SelectIndex returns the position picked from n candidates sorted by descending
// bitrate, or -1 when n is zero.
//
// VeryHigh takes the first, High the one a third of the way down and Normal the
// median.
func SelectIndex(n int, q Quality) int {
	if n <= 0 {
		return -1
	}

	var idx int
	switch q {
	case QualityVeryHigh:
		idx = 0
	case QualityHigh:
		idx = n / 3
	default:
		idx = n / 2
	}
	return min(idx, n-1)
}

// SelectFormat picks one candidate from sorted by quality tier.
func SelectFormat(sorted []Candidate, q Quality) (Candidate, bool) {
	idx := SelectIndex(len(sorted), q)
	if idx < 0 {
		return Candidate{}, false
	}
	return sorted[idx], true
}

// ExtensionFor maps an audio mime type to a file extension.
func ExtensionFor(mime string) string {
	base, _, _ := strings.Cut(strings.ToLower(mime), ";")
	switch strings.TrimSpace(base) {
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "webm"
	}
}
