package ai

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MediaKit produces narration and matching visuals for one prompt.
type MediaKit struct {
	speech *SpeechSynthesizer
	videos VideoCreator
}

func NewMediaKit(speech *SpeechSynthesizer, videos VideoCreator) *MediaKit {
	return &MediaKit{speech: speech, videos: videos}
}

func (k *MediaKit) Generate(ctx context.Context, in MediaInput) (*MediaOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) < MinPromptLength {
		return nil, invalidInput("prompt must be at least %d characters", MinPromptLength)
	}

	out := &MediaOutput{Prompt: prompt}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		audio, err := k.speech.Synthesize(gctx, SpeechInput{Text: prompt})
		if err != nil {
			return err
		}
		out.AudioURL = audio.AudioURL
		return nil
	})
	g.Go(func() error {
		video, err := k.videos.CreateVideo(gctx, VideoInput{Prompt: prompt})
		if err != nil {
			return err
		}
		out.VideoURL = video.VideoURL
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
