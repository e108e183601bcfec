// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/vyra/internal/services"
)

// FakeSource is a [services.Source] double that counts its calls.
type FakeSource struct {
	SourceName string
	Set        *services.CandidateSet
	Err        error
	calls      atomic.Int32
	mu         sync.Mutex
	ids        []string
}

// NewFakeSource returns a source that yields one candidate per url, in the given
// bitrate order.
func NewFakeSource(name string, urls ...string) *FakeSource {
	set := &services.CandidateSet{}
	for i, u := range urls {
		set.Candidates = append(set.Candidates, services.Candidate{
			MimeType: "audio/webm; codecs=\"opus\"",
			Bitrate:  int64(160000 - i*1000),
			URL:      u,
		})
	}
	return &FakeSource{SourceName: name, Set: set}
}

// NewFailingSource returns a source whose every attempt fails with err.
func NewFailingSource(name string, err error) *FakeSource {
	return &FakeSource{SourceName: name, Err: err}
}

func (f *FakeSource) Name() string { return f.SourceName }

func (f *FakeSource) Candidates(ctx context.Context, id string) (*services.CandidateSet, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return f.Set, nil
}

// Calls is the number of Candidates invocations so far.
func (f *FakeSource) Calls() int { return int(f.calls.Load()) }

// IDs returns the track ids requested so far.
func (f *FakeSource) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// AudioBytes returns n deterministic bytes for range assertions.
func AudioBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
