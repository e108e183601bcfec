package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/vyra/internal/shared"
)

const pipedUserAgent = "Mozilla/5.0"

// DefaultPipedInstances are the secondary providers, tried in order.
var DefaultPipedInstances = []string{
	"https://pipedapi.kavin.rocks",
	"https://pipedapi.adminforge.de",
	"https://api.piped.yt",
}

// PipedSource reads audio streams from a Piped API mirror.
type PipedSource struct {
	instance   string
	httpClient *http.Client
	timeout    time.Duration
}

type pipedStreams struct {
	Title        string      `json:"title"`
	Uploader     string      `json:"uploader"`
	AudioStreams []Candidate `json:"audioStreams"`
}

// NewPipedSource creates a source for the mirror at instance.
func NewPipedSource(instance string, client *http.Client, timeout time.Duration) *PipedSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &PipedSource{instance: strings.TrimRight(instance, "/"), httpClient: client, timeout: timeout}
}

func (s *PipedSource) Name() string { return "piped:" + s.instance }

// Candidates calls GET {instance}/streams/{id}.
func (s *PipedSource) Candidates(ctx context.Context, id string) (*CandidateSet, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	endpoint := s.instance + "/streams/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", pipedUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrUpstreamRejected, s.instance, resp.StatusCode)
	}

	var streams pipedStreams
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return nil, fmt.Errorf("%w: failed to decode streams: %v", shared.ErrUpstreamRejected, err)
	}

	return &CandidateSet{
		Candidates: AudioCandidates(streams.AudioStreams, ContainsAudio),
		Title:      streams.Title,
		Author:     streams.Uploader,
	}, nil
}
