package ai

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cyberjungle/internal/media"
)

type fakeText struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeText) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeImages struct {
	calls  atomic.Int32
	failAt int32
	err    error
}

func (f *fakeImages) GenerateImage(_ context.Context, _ string) (*media.DataURI, error) {
	n := f.calls.Add(1)
	if f.failAt > 0 && n == f.failAt {
		return nil, f.err
	}
	return &media.DataURI{MIMEType: "image/png", Data: []byte{byte(n), 0x89, 'P', 'N', 'G'}}, nil
}

type fakeSpeech struct {
	mu    sync.Mutex
	cfg   SpeechConfig
	audio *media.DataURI
	err   error
}

func (f *fakeSpeech) GenerateSpeech(_ context.Context, _ string, cfg SpeechConfig) (*media.DataURI, error) {
	f.mu.Lock()
	f.cfg = cfg
	f.mu.Unlock()
	return f.audio, f.err
}

// scriptedVideo replays a fixed sequence of poll results.
type scriptedVideo struct {
	submitted *Operation
	submitErr error
	polls     []*Operation
	pollCalls int
	request   VideoRequest
}

func (s *scriptedVideo) SubmitVideo(_ context.Context, req VideoRequest) (*Operation, error) {
	s.request = req
	return s.submitted, s.submitErr
}

func (s *scriptedVideo) PollVideo(_ context.Context, op *Operation) (*Operation, error) {
	s.pollCalls++
	if s.pollCalls > len(s.polls) {
		return &Operation{Name: op.Name}, nil
	}
	return s.polls[s.pollCalls-1], nil
}

type fakeSyncVideo struct {
	asset *VideoAsset
	err   error
}

func (f *fakeSyncVideo) GenerateVideo(_ context.Context, _ VideoRequest) (*VideoAsset, error) {
	return f.asset, f.err
}

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
	urls        []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	f.urls = append(f.urls, url)
	return f.data, f.contentType, f.err
}

type waitRecorder struct {
	calls int
}

func (w *waitRecorder) wait(ctx context.Context, _ time.Duration) error {
	w.calls++
	return ctx.Err()
}
