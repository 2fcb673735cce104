package ai

import (
	"context"
	"strings"
	"time"

	"cyberjungle/internal/media"
)

const (
	MinPromptLength  = 10
	DefaultVoice     = "Algenib"
	SecondVoice      = "Auriga"
	DefaultVideoMIME = "video/mp4"
)

type AnswerInput struct {
	Question string `json:"question"`
}

type AnswerOutput struct {
	Answer string `json:"answer"`
}

type ContentInput struct {
	Prompt string `json:"prompt"`
}

type ContentOutput struct {
	Content string `json:"content"`
}

type ImageInput struct {
	Prompt string `json:"prompt"`
}

type ImageOutput struct {
	ImageURLs []string `json:"image_urls"`
}

type SpeechInput struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type SpeechOutput struct {
	AudioURL string `json:"audio_url"`
}

type VideoInput struct {
	Prompt       string `json:"prompt"`
	ImageDataURI string `json:"image_data_uri,omitempty"`
}

type VideoOutput struct {
	VideoURL string `json:"video_url"`
}

type MediaInput struct {
	Prompt string `json:"prompt"`
}

type MediaOutput struct {
	Prompt   string `json:"prompt"`
	AudioURL string `json:"audio_url"`
	VideoURL string `json:"video_url"`
}

// SpeakerVoice maps a dialogue tag to a prebuilt voice.
type SpeakerVoice struct {
	Speaker string
	Voice   string
}

// SpeechConfig selects either a single voice or, when Speakers is set, multi-speaker synthesis.
type SpeechConfig struct {
	Voice    string
	Speakers []SpeakerVoice
}

func (c SpeechConfig) MultiSpeaker() bool {
	return len(c.Speakers) > 0
}

// VoiceLabel names the voice used, joining speaker voices with "+" for dialogue.
func (c SpeechConfig) VoiceLabel() string {
	if !c.MultiSpeaker() {
		return c.Voice
	}
	voices := make([]string, 0, len(c.Speakers))
	for _, s := range c.Speakers {
		voices = append(voices, s.Voice)
	}
	return strings.Join(voices, "+")
}

// VideoRequest is the normalized submission for every video provider.
type VideoRequest struct {
	Prompt string
	Image  *media.DataURI
}

// VideoAsset is the media part of a finished video. Either Data is set inline
// or URI points at an externally hosted file.
type VideoAsset struct {
	URI      string
	MIMEType string
	Data     []byte
}

// Operation is the handle of a long-running remote video job.
type Operation struct {
	Name   string
	Done   bool
	Error  *OperationError
	Result *VideoAsset
}

// PollPolicy bounds the wait for a video operation.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 5 * time.Second, MaxAttempts: 120, Timeout: 15 * time.Minute}
}

type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*media.DataURI, error)
}

// SpeechModel returns raw PCM samples; the MIME type may carry rate= and channels=.
type SpeechModel interface {
	GenerateSpeech(ctx context.Context, text string, cfg SpeechConfig) (*media.DataURI, error)
}

type VideoModel interface {
	SubmitVideo(ctx context.Context, req VideoRequest) (*Operation, error)
	PollVideo(ctx context.Context, op *Operation) (*Operation, error)
}

type SyncVideoModel interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (*VideoAsset, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// VideoCreator is implemented by both the polling composition and the synchronous variant.
type VideoCreator interface {
	CreateVideo(ctx context.Context, in VideoInput) (*VideoOutput, error)
}
