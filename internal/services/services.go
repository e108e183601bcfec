package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vyra/internal/shared"
)

// Source is one step of the resolution fallback chain.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Candidates returns the audio encodings this source offers for id, sorted by
	// descending bitrate. An error or an empty set moves resolution to the next source.
	Candidates(ctx context.Context, id string) (*CandidateSet, error)
}

// CandidateSet is the outcome of one source attempt.
type CandidateSet struct {
	Candidates []Candidate
	Title      string
	Author     string
}

// PersonaSource asks the player endpoint for streams while presenting one persona.
type PersonaSource struct {
	yt      *YouTubeService
	persona Persona
	timeout time.Duration
}

// NewPersonaSource creates a [PersonaSource]. A non-positive timeout disables the
// per-attempt deadline.
func NewPersonaSource(yt *YouTubeService, p Persona, timeout time.Duration) *PersonaSource {
	return &PersonaSource{yt: yt, persona: p, timeout: timeout}
}

func (s *PersonaSource) Name() string { return s.persona.Name }

// Candidates requires playabilityStatus OK and returns the audio-only formats.
func (s *PersonaSource) Candidates(ctx context.Context, id string) (*CandidateSet, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.yt.Player(ctx, s.persona, id)
	if err != nil {
		return nil, err
	}

	if !resp.Playable() {
		return nil, fmt.Errorf("%w: playability %q: %s", shared.ErrUpstreamRejected, resp.PlayabilityStatus.Status, resp.PlayabilityStatus.Reason)
	}

	return &CandidateSet{
		Candidates: resp.AudioCandidates(),
		Title:      resp.VideoDetails.Title,
		Author:     resp.VideoDetails.Author,
	}, nil
}
