// Package gemini implements the image, speech and video models on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cyberjungle/internal/media"
	"cyberjungle/internal/service/ai"

	"google.golang.org/genai"
)

const (
	DefaultImageModel  = "gemini-2.0-flash-preview-image-generation"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVideoModel  = "veo-2.0-generate-001"
)

type Config struct {
	APIKey      string
	BaseURL     string
	ImageModel  string
	SpeechModel string
	VideoModel  string
}

// Provider talks to the Gemini API. The SDK client is created on first use.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	client *genai.Client
}

func New(cfg Config) *Provider {
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = DefaultVideoModel
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  p.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("new genai client: %w", err)
	}
	p.client = client
	return client, nil
}

func (p *Provider) GenerateImage(ctx context.Context, prompt string) (*media.DataURI, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(ctx, p.cfg.ImageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, classify(err)
	}
	blob := firstInline(resp, "image/")
	if blob == nil {
		return nil, fmt.Errorf("%w: no image in response", ai.ErrNotFound)
	}
	return blob, nil
}

func (p *Provider) GenerateSpeech(ctx context.Context, text string, cfg ai.SpeechConfig) (*media.DataURI, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(ctx, p.cfg.SpeechModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       speechConfig(cfg),
	})
	if err != nil {
		return nil, classify(err)
	}
	blob := firstInline(resp, "audio/")
	if blob == nil {
		return nil, fmt.Errorf("%w: no audio in response", ai.ErrNotFound)
	}
	return blob, nil
}

func (p *Provider) SubmitVideo(ctx context.Context, req ai.VideoRequest) (*ai.Operation, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	var image *genai.Image
	if req.Image != nil {
		image = &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	}
	op, err := client.Models.GenerateVideos(ctx, p.cfg.VideoModel, req.Prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return nil, classify(err)
	}
	return toOperation(op), nil
}

func (p *Provider) PollVideo(ctx context.Context, op *ai.Operation) (*ai.Operation, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	next, err := client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, classify(err)
	}
	return toOperation(next), nil
}

func speechConfig(cfg ai.SpeechConfig) *genai.SpeechConfig {
	if cfg.MultiSpeaker() {
		speakers := make([]*genai.SpeakerVoiceConfig, 0, len(cfg.Speakers))
		for _, s := range cfg.Speakers {
			speakers = append(speakers, &genai.SpeakerVoiceConfig{
				Speaker:     s.Speaker,
				VoiceConfig: prebuilt(s.Voice),
			})
		}
		return &genai.SpeechConfig{
			MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: speakers},
		}
	}
	return &genai.SpeechConfig{VoiceConfig: prebuilt(cfg.Voice)}
}

func prebuilt(voice string) *genai.VoiceConfig {
	return &genai.VoiceConfig{PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice}}
}

// firstInline returns the first inline part whose MIME type starts with prefix.
func firstInline(resp *genai.GenerateContentResponse, prefix string) *media.DataURI {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			blob := &media.DataURI{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}
			if blob.HasPrefix(prefix) {
				return blob
			}
		}
	}
	return nil
}

func toOperation(op *genai.GenerateVideosOperation) *ai.Operation {
	if op == nil {
		return nil
	}
	out := &ai.Operation{Name: op.Name, Done: op.Done}
	if !op.Done {
		return out
	}
	if len(op.Error) > 0 {
		out.Error = operationError(op.Error)
		return out
	}
	if op.Response == nil {
		return out
	}
	for _, gv := range op.Response.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		if gv.Video.URI == "" && len(gv.Video.VideoBytes) == 0 {
			continue
		}
		out.Result = &ai.VideoAsset{URI: gv.Video.URI, MIMEType: gv.Video.MIMEType, Data: gv.Video.VideoBytes}
		break
	}
	if out.Result == nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
		out.Error = &ai.OperationError{Message: strings.Join(op.Response.RAIMediaFilteredReasons, "; ")}
	}
	return out
}

func operationError(raw map[string]any) *ai.OperationError {
	oe := &ai.OperationError{}
	if msg, ok := raw["message"].(string); ok {
		oe.Message = msg
	}
	switch code := raw["code"].(type) {
	case float64:
		oe.Code = int(code)
	case int:
		oe.Code = code
	case int32:
		oe.Code = int(code)
	case int64:
		oe.Code = int(code)
	}
	if oe.Message == "" {
		oe.Message = fmt.Sprintf("video operation failed: %v", raw)
	}
	return oe
}

// classify marks quota errors as rate limited; everything else is a provider failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ai.ErrRateLimited, apiErr.Message)
		}
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		if apiErrPtr.Code == 429 || apiErrPtr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ai.ErrRateLimited, apiErrPtr.Message)
		}
	default:
		msg := err.Error()
		if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
			return fmt.Errorf("%w: %s", ai.ErrRateLimited, msg)
		}
	}
	return fmt.Errorf("%w: %w", ai.ErrProvider, err)
}
