// YouTube Music Innertube client
//
// Talks to the youtubei/v1 endpoints directly with a static API key. Player calls
// present one of the [DefaultPersonas]; catalog calls present [WebRemix].
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
)

const (
	defaultYTBaseURL  = "https://music.youtube.com"
	defaultYTLanguage = "en"
	defaultYTRegion   = "US"
	androidSdkVersion = 30
	secondsPerDay     = 86400
)

// YouTubeOpts configures a [YouTubeService]. Zero values fall back to defaults.
type YouTubeOpts struct {
	BaseURL  string
	APIKey   string
	Language string
	Region   string
	Client   *http.Client
	Limiter  *rate.Limiter
	Visitor  *store.VisitorData
	Logger   *log.Logger
	Now      func() time.Time
}

// YouTubeService is an Innertube API client.
//
// Every response carrying responseContext.visitorData replaces the shared visitor
// token, which is then echoed on later requests.
type YouTubeService struct {
	baseURL    string
	apiKey     string
	language   string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
	visitor    *store.VisitorData
	logger     *log.Logger
	now        func() time.Time
}

// PlayerResponse is the subset of a player response used for stream resolution.
type PlayerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	StreamingData struct {
		AdaptiveFormats []Candidate `json:"adaptiveFormats"`
		Formats         []Candidate `json:"formats"`
	} `json:"streamingData"`
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

// Playable reports whether the persona was allowed to play the track.
func (p *PlayerResponse) Playable() bool {
	return p.PlayabilityStatus.Status == "OK"
}

// AudioCandidates prefers adaptive formats and falls back to muxed formats when
// the adaptive list has no usable audio.
func (p *PlayerResponse) AudioCandidates() []Candidate {
	if c := AudioCandidates(p.StreamingData.AdaptiveFormats, HasAudioPrefix); len(c) > 0 {
		return c
	}
	return AudioCandidates(p.StreamingData.Formats, HasAudioPrefix)
}

type responseContext struct {
	ResponseContext struct {
		VisitorData string `json:"visitorData"`
	} `json:"responseContext"`
}

// NewYouTubeService creates a new Innertube client.
func NewYouTubeService(opts YouTubeOpts) *YouTubeService {
	y := &YouTubeService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		language:   opts.Language,
		region:     opts.Region,
		httpClient: opts.Client,
		limiter:    opts.Limiter,
		visitor:    opts.Visitor,
		logger:     opts.Logger,
		now:        opts.Now,
	}

	if y.baseURL == "" {
		y.baseURL = defaultYTBaseURL
	}
	if y.language == "" {
		y.language = defaultYTLanguage
	}
	if y.region == "" {
		y.region = defaultYTRegion
	}
	if y.httpClient == nil {
		y.httpClient = http.DefaultClient
	}
	if y.limiter == nil {
		y.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if y.visitor == nil {
		y.visitor = store.NewVisitorData()
	}
	if y.logger == nil {
		y.logger = shared.NewLogger(nil)
	}
	if y.now == nil {
		y.now = time.Now
	}
	return y
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// SignatureTimestamp is the number of whole days since the Unix epoch.
func (y *YouTubeService) SignatureTimestamp() int64 {
	return y.now().Unix() / secondsPerDay
}

func (y *YouTubeService) clientContext(p Persona, player bool) map[string]any {
	client := map[string]any{
		"clientName":    p.Name,
		"clientVersion": p.Version,
		"hl":            y.language,
		"gl":            y.region,
	}
	if v := y.visitor.Get(); v != "" {
		client["visitorData"] = v
	}
	if player {
		client["androidSdkVersion"] = androidSdkVersion
	}
	return map[string]any{"client": client}
}

// Player requests playback data for videoID while presenting persona p.
//
// Transport failures wrap [shared.ErrTransport]; non-2xx statuses and undecodable
// bodies wrap [shared.ErrUpstreamRejected]. Playability is left to the caller.
func (y *YouTubeService) Player(ctx context.Context, p Persona, videoID string) (*PlayerResponse, error) {
	body := map[string]any{
		"context": y.clientContext(p, true),
		"videoId": videoID,
		"playbackContext": map[string]any{
			"contentPlaybackContext": map[string]any{
				"signatureTimestamp": y.SignatureTimestamp(),
			},
		},
		"racyCheckOk":    true,
		"contentCheckOk": true,
	}

	headers := http.Header{}
	headers.Set("X-Goog-Api-Format-Version", "1")
	headers.Set("X-YouTube-Client-Name", strconv.Itoa(p.ClientID))
	headers.Set("X-YouTube-Client-Version", p.Version)

	raw, err := y.post(ctx, "player", p, body, headers)
	if err != nil {
		return nil, err
	}

	var resp PlayerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode player response: %v", shared.ErrUpstreamRejected, err)
	}
	return &resp, nil
}

// Search runs a catalog search. params is the optional filter token.
func (y *YouTubeService) Search(ctx context.Context, query, params string) (json.RawMessage, error) {
	body := map[string]any{"context": y.clientContext(WebRemix, false), "query": query}
	if params != "" {
		body["params"] = params
	}
	return y.post(ctx, "search", WebRemix, body, nil)
}

// Suggestions returns search-as-you-type suggestions for input.
func (y *YouTubeService) Suggestions(ctx context.Context, input string) (json.RawMessage, error) {
	body := map[string]any{"context": y.clientContext(WebRemix, false), "input": input}
	return y.post(ctx, "music/get_search_suggestions", WebRemix, body, nil)
}

// Next fetches the radio queue that follows videoID.
func (y *YouTubeService) Next(ctx context.Context, videoID string) (json.RawMessage, error) {
	body := map[string]any{
		"context":                       y.clientContext(WebRemix, false),
		"videoId":                       videoID,
		"playlistId":                    "RDAMVM" + videoID,
		"isAudioOnly":                   true,
		"enablePersistentPlaylistPanel": true,
		"tunerSettingValue":             "AUTOMIX_SETTING_NORMAL",
		"watchEndpointMusicSupportedConfigs": map[string]any{
			"watchEndpointMusicConfig": map[string]any{
				"hasPersistentPlaylistPanel": true,
				"musicVideoType":             "MUSIC_VIDEO_TYPE_ATV",
			},
		},
		"params": "wAEB",
	}
	return y.post(ctx, "next", WebRemix, body, nil)
}

// Browse fetches a browse page such as FEmusic_home or an artist channel id.
func (y *YouTubeService) Browse(ctx context.Context, browseID, params string) (json.RawMessage, error) {
	body := map[string]any{"context": y.clientContext(WebRemix, false), "browseId": browseID}
	if params != "" {
		body["params"] = params
	}
	return y.post(ctx, "browse", WebRemix, body, nil)
}

func (y *YouTubeService) endpoint(name string) string {
	return fmt.Sprintf("%s/youtubei/v1/%s?key=%s", y.baseURL, name, url.QueryEscape(y.apiKey))
}

func (y *YouTubeService) post(ctx context.Context, name string, p Persona, body any, extra http.Header) ([]byte, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.endpoint(name), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://music.youtube.com")
	req.Header.Set("Referer", "https://music.youtube.com/")
	req.Header.Set("User-Agent", p.UserAgent)
	for k, v := range extra {
		req.Header[k] = v
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTransport, err)
	}

	y.captureVisitor(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrUpstreamRejected, name, resp.StatusCode)
	}
	return raw, nil
}

// captureVisitor stores the visitor token of raw, if any. Failures are ignored.
func (y *YouTubeService) captureVisitor(raw []byte) {
	var rc responseContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		return
	}
	if v := rc.ResponseContext.VisitorData; v != "" {
		y.visitor.Set(v)
		y.logger.Debug("captured visitor data")
	}
}

// CollectVideoIDs returns every "videoId" string in a raw response, in document
// order and without duplicates. Malformed input yields the ids seen so far.
func CollectVideoIDs(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	var stack []jsonFrame
	var ids []string
	seen := map[string]bool{}

	for {
		tok, err := dec.Token()
		if err != nil {
			return ids
		}

		n := len(stack)
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, jsonFrame{object: true, wantKey: true})
			case '[':
				stack = append(stack, jsonFrame{})
			case '}', ']':
				stack = stack[:n-1]
				valueDone(stack)
			}
		case string:
			if n > 0 && stack[n-1].object && stack[n-1].wantKey {
				stack[n-1].key = v
				stack[n-1].wantKey = false
				continue
			}
			if n > 0 && stack[n-1].object && stack[n-1].key == "videoId" && v != "" && !seen[v] {
				seen[v] = true
				ids = append(ids, v)
			}
			valueDone(stack)
		default:
			valueDone(stack)
		}
	}
}

type jsonFrame struct {
	object  bool
	wantKey bool
	key     string
}

// valueDone marks the value of the innermost object member as consumed.
func valueDone(stack []jsonFrame) {
	if n := len(stack); n > 0 && stack[n-1].object {
		stack[n-1].wantKey = true
	}
}

// SuggestionTexts extracts the suggestion strings from a get_search_suggestions response.
func SuggestionTexts(raw []byte) []string {
	var resp struct {
		Contents []struct {
			Section struct {
				Contents []struct {
					Renderer *struct {
						Suggestion struct {
							Runs []struct {
								Text string `json:"text"`
							} `json:"runs"`
						} `json:"suggestion"`
					} `json:"searchSuggestionRenderer"`
				} `json:"contents"`
			} `json:"searchSuggestionsSectionRenderer"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}

	var out []string
	for _, c := range resp.Contents {
		for _, item := range c.Section.Contents {
			if item.Renderer == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range item.Renderer.Suggestion.Runs {
				sb.WriteString(run.Text)
			}
			if text := sb.String(); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}
