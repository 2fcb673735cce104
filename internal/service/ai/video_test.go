package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyberjungle/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoPrompt = "a jaguar walking through rain"

func TestVideoComposerPollsUntilDone(t *testing.T) {
	model := &scriptedVideo{
		submitted: &Operation{Name: "operations/1"},
		polls: []*Operation{
			{Name: "operations/1"},
			{Name: "operations/1", Done: true, Result: &VideoAsset{URI: "https://files.example/v.mp4"}},
		},
	}
	fetcher := &fakeFetcher{data: []byte("mp4-bytes"), contentType: "video/mp4"}
	waits := &waitRecorder{}

	out, err := NewVideoComposer(model, fetcher, PollPolicy{Interval: time.Second, MaxAttempts: 10}).
		WithWait(waits.wait).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	require.NoError(t, err)
	assert.Equal(t, 2, waits.calls)
	assert.Equal(t, 2, model.pollCalls)
	assert.Equal(t, []string{"https://files.example/v.mp4"}, fetcher.urls)

	parsed, err := media.ParseDataURI(out.VideoURL)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", parsed.MIMEType)
	assert.Equal(t, []byte("mp4-bytes"), parsed.Data)
}

func TestVideoComposerOperationErrorIsVerbatim(t *testing.T) {
	opErr := &OperationError{Code: 3, Message: "prompt violates safety policy"}
	model := &scriptedVideo{
		submitted: &Operation{Name: "operations/2"},
		polls: []*Operation{
			{Name: "operations/2", Done: true, Error: opErr},
			{Name: "operations/2", Done: true},
		},
	}
	waits := &waitRecorder{}

	_, err := NewVideoComposer(model, &fakeFetcher{}, PollPolicy{Interval: time.Second, MaxAttempts: 10}).
		WithWait(waits.wait).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	require.Error(t, err)
	assert.Equal(t, "prompt violates safety policy", err.Error())
	var target *OperationError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 1, model.pollCalls)
	assert.Equal(t, 1, waits.calls)
}

func TestVideoComposerQuotaOperationErrorIsRateLimited(t *testing.T) {
	for _, opErr := range []*OperationError{
		{Code: 8, Message: "quota exceeded for veo"},
		{Code: 429, Message: "too many requests"},
		{Message: "RESOURCE_EXHAUSTED: try again later"},
	} {
		model := &scriptedVideo{
			submitted: &Operation{Name: "operations/q"},
			polls:     []*Operation{{Name: "operations/q", Done: true, Error: opErr}},
		}
		_, err := NewVideoComposer(model, &fakeFetcher{}, PollPolicy{Interval: time.Second, MaxAttempts: 10}).
			WithWait((&waitRecorder{}).wait).
			CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
		assert.ErrorIs(t, err, ErrRateLimited, opErr.Message)
		assert.Equal(t, opErr.Message, err.Error())
	}

	assert.False(t, errors.Is(&OperationError{Code: 3, Message: "prompt violates safety policy"}, ErrRateLimited))
	assert.False(t, errors.Is(&OperationError{Code: 8, Message: "quota"}, ErrNotFound))
}

func TestVideoComposerBoundedPolling(t *testing.T) {
	model := &scriptedVideo{submitted: &Operation{Name: "operations/3"}}
	waits := &waitRecorder{}

	_, err := NewVideoComposer(model, &fakeFetcher{}, PollPolicy{Interval: time.Second, MaxAttempts: 3}).
		WithWait(waits.wait).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrPollExhausted)
	assert.Equal(t, 3, model.pollCalls)
}

func TestVideoComposerTimeoutAndCancel(t *testing.T) {
	model := &scriptedVideo{submitted: &Operation{Name: "operations/4"}}
	composer := NewVideoComposer(model, &fakeFetcher{}, PollPolicy{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 1000000,
		Timeout:     30 * time.Millisecond,
	})
	_, err := composer.CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrPollExhausted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = composer.CreateVideo(ctx, VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVideoComposerSubmitFailures(t *testing.T) {
	_, err := NewVideoComposer(&scriptedVideo{}, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewVideoComposer(&scriptedVideo{submitErr: ErrRateLimited}, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrRateLimited)

	model := &scriptedVideo{submitted: &Operation{Name: "op", Done: true}}
	_, err = NewVideoComposer(model, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, model.pollCalls)
}

func TestVideoComposerReferenceImage(t *testing.T) {
	model := &scriptedVideo{submitted: &Operation{Name: "op", Done: true, Result: &VideoAsset{
		Data: []byte("inline"), MIMEType: "",
	}}}
	img := media.Encode("image/jpeg", []byte{0xff, 0xd8})
	out, err := NewVideoComposer(model, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt, ImageDataURI: img})
	require.NoError(t, err)
	require.NotNil(t, model.request.Image)
	assert.Equal(t, "image/jpeg", model.request.Image.MIMEType)
	assert.Equal(t, media.Encode(DefaultVideoMIME, []byte("inline")), out.VideoURL)

	_, err = NewVideoComposer(model, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt, ImageDataURI: media.Encode("text/plain", []byte("x"))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewVideoComposer(model, nil, DefaultPollPolicy()).
		CreateVideo(context.Background(), VideoInput{Prompt: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSyncVideoCreator(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("runway"), contentType: ""}
	out, err := NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{URI: "https://cdn.example/out.mp4"}}, fetcher).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	require.NoError(t, err)
	assert.Equal(t, media.Encode("video/mp4", []byte("runway")), out.VideoURL)

	_, err = NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{}}, fetcher).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{URI: "https://cdn.example/out.mp4"}}, &fakeFetcher{err: errors.New("403")}).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestSyncVideoCreatorIgnoresNonVideoContentType(t *testing.T) {
	for _, ct := range []string{"text/html", "application/octet-stream", "image/png"} {
		fetcher := &fakeFetcher{data: []byte("clip"), contentType: ct}
		out, err := NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{URI: "https://cdn.example/out"}}, fetcher).
			CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
		require.NoError(t, err, ct)
		parsed, err := media.ParseDataURI(out.VideoURL)
		require.NoError(t, err)
		assert.Equal(t, DefaultVideoMIME, parsed.MIMEType, ct)
		assert.Equal(t, []byte("clip"), parsed.Data)
	}

	fetcher := &fakeFetcher{data: []byte("clip"), contentType: "video/webm"}
	out, err := NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{URI: "https://cdn.example/out"}}, fetcher).
		CreateVideo(context.Background(), VideoInput{Prompt: videoPrompt})
	require.NoError(t, err)
	assert.Equal(t, media.Encode("video/webm", []byte("clip")), out.VideoURL)
}

func TestAnimatorRequiresImage(t *testing.T) {
	model := &fakeSyncVideo{asset: &VideoAsset{Data: []byte("anim"), MIMEType: "video/webm"}}
	animator := NewAnimator(NewSyncVideoCreator(model, nil))

	_, err := animator.Animate(context.Background(), VideoInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrInvalidInput)

	out, err := animator.Animate(context.Background(), VideoInput{
		Prompt:       videoPrompt,
		ImageDataURI: media.Encode("image/png", []byte{1}),
	})
	require.NoError(t, err)
	assert.Equal(t, media.Encode("video/webm", []byte("anim")), out.VideoURL)
}

func TestMediaKit(t *testing.T) {
	speech := NewSpeechSynthesizer(&fakeSpeech{audio: &media.DataURI{MIMEType: "audio/L16;rate=24000", Data: []byte{0, 0}}})
	videos := NewSyncVideoCreator(&fakeSyncVideo{asset: &VideoAsset{Data: []byte("v"), MIMEType: "video/mp4"}}, nil)

	out, err := NewMediaKit(speech, videos).Generate(context.Background(), MediaInput{Prompt: videoPrompt})
	require.NoError(t, err)
	assert.Equal(t, videoPrompt, out.Prompt)
	assert.Contains(t, out.AudioURL, "data:audio/wav;base64,")
	assert.Equal(t, media.Encode("video/mp4", []byte("v")), out.VideoURL)

	failing := NewSyncVideoCreator(&fakeSyncVideo{err: errors.New("down")}, nil)
	_, err = NewMediaKit(speech, failing).Generate(context.Background(), MediaInput{Prompt: videoPrompt})
	assert.ErrorIs(t, err, ErrProvider)
}
