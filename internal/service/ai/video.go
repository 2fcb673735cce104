package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cyberjungle/internal/media"
)

// WaitFunc suspends between polls; it must return early when ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VideoComposer submits a video job, polls its operation handle under a
// bounded policy, then materializes the result as a data URI.
type VideoComposer struct {
	model   VideoModel
	fetcher Fetcher
	policy  PollPolicy
	wait    WaitFunc
}

func NewVideoComposer(model VideoModel, fetcher Fetcher, policy PollPolicy) *VideoComposer {
	def := DefaultPollPolicy()
	if policy.Interval <= 0 {
		policy.Interval = def.Interval
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	return &VideoComposer{model: model, fetcher: fetcher, policy: policy, wait: sleepContext}
}

// WithWait replaces the delay between polls.
func (c *VideoComposer) WithWait(wait WaitFunc) *VideoComposer {
	c.wait = wait
	return c
}

func (c *VideoComposer) CreateVideo(ctx context.Context, in VideoInput) (*VideoOutput, error) {
	req, err := buildVideoRequest(in, false)
	if err != nil {
		return nil, err
	}

	op, err := c.model.SubmitVideo(ctx, req)
	if err != nil {
		return nil, providerFailure("submit video", err)
	}
	if op == nil {
		return nil, notFound("operation handle")
	}
	slog.DebugContext(ctx, "video operation submitted", "operation", op.Name)

	op, err = c.await(ctx, op)
	if err != nil {
		return nil, err
	}
	if op.Error != nil {
		return nil, op.Error
	}
	if op.Result == nil {
		return nil, notFound("video media in operation result")
	}

	url, err := materialize(ctx, c.fetcher, op.Result)
	if err != nil {
		return nil, err
	}
	return &VideoOutput{VideoURL: url}, nil
}

func (c *VideoComposer) await(ctx context.Context, op *Operation) (*Operation, error) {
	pollCtx := ctx
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	for attempt := 0; !op.Done; attempt++ {
		if attempt >= c.policy.MaxAttempts {
			return nil, fmt.Errorf("%w: %d checks of %s", ErrPollExhausted, attempt, op.Name)
		}
		if err := c.wait(pollCtx, c.policy.Interval); err != nil {
			return nil, c.stopped(ctx, err, op)
		}
		next, err := c.model.PollVideo(pollCtx, op)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, c.stopped(ctx, err, op)
			}
			return nil, providerFailure("poll video", err)
		}
		if next == nil {
			return nil, notFound("operation handle")
		}
		op = next
	}
	return op, nil
}

// stopped distinguishes the caller giving up from the poll timeout expiring.
func (c *VideoComposer) stopped(ctx context.Context, err error, op *Operation) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s still running after %s", ErrPollExhausted, op.Name, c.policy.Timeout)
	}
	return err
}

// SyncVideoCreator drives providers that answer a generation in a single call.
type SyncVideoCreator struct {
	model   SyncVideoModel
	fetcher Fetcher
}

func NewSyncVideoCreator(model SyncVideoModel, fetcher Fetcher) *SyncVideoCreator {
	return &SyncVideoCreator{model: model, fetcher: fetcher}
}

func (c *SyncVideoCreator) CreateVideo(ctx context.Context, in VideoInput) (*VideoOutput, error) {
	req, err := buildVideoRequest(in, false)
	if err != nil {
		return nil, err
	}
	asset, err := c.model.GenerateVideo(ctx, req)
	if err != nil {
		return nil, providerFailure("generate video", err)
	}
	if asset == nil {
		return nil, notFound("video url")
	}
	url, err := materialize(ctx, c.fetcher, asset)
	if err != nil {
		return nil, err
	}
	return &VideoOutput{VideoURL: url}, nil
}

// Animator brings a still image to life; the reference image is mandatory.
type Animator struct {
	videos VideoCreator
}

func NewAnimator(videos VideoCreator) *Animator {
	return &Animator{videos: videos}
}

func (a *Animator) Animate(ctx context.Context, in VideoInput) (*VideoOutput, error) {
	if _, err := buildVideoRequest(in, true); err != nil {
		return nil, err
	}
	return a.videos.CreateVideo(ctx, in)
}

func buildVideoRequest(in VideoInput, requireImage bool) (VideoRequest, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) < MinPromptLength {
		return VideoRequest{}, invalidInput("prompt must be at least %d characters", MinPromptLength)
	}
	req := VideoRequest{Prompt: prompt}
	if strings.TrimSpace(in.ImageDataURI) == "" {
		if requireImage {
			return VideoRequest{}, invalidInput("reference image is required")
		}
		return req, nil
	}
	img, err := media.ParseDataURI(in.ImageDataURI)
	if err != nil {
		return VideoRequest{}, invalidInput("reference image: %v", err)
	}
	if !img.HasPrefix("image/") {
		return VideoRequest{}, invalidInput("reference must be an image, got %q", img.MIMEType)
	}
	req.Image = img
	return req, nil
}

// materialize turns a provider asset into a self-contained data URI,
// downloading externally hosted files when needed.
func materialize(ctx context.Context, fetcher Fetcher, asset *VideoAsset) (string, error) {
	data, mimeType := asset.Data, asset.MIMEType
	if len(data) == 0 {
		if asset.URI == "" {
			return "", notFound("video url")
		}
		if fetcher == nil {
			return "", fmt.Errorf("%w: no fetcher for hosted video", ErrProvider)
		}
		var fetchedType string
		var err error
		data, fetchedType, err = fetcher.Fetch(ctx, asset.URI)
		if err != nil {
			return "", providerFailure("download video", err)
		}
		if len(data) == 0 {
			return "", notFound("video bytes")
		}
		if mimeType == "" {
			mimeType = fetchedType
		}
	}
	// error pages or generic binary types must not end up labelled as the video
	if !strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		mimeType = DefaultVideoMIME
	}
	return media.Encode(mimeType, data), nil
}
