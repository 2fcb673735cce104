package ai

import (
	"context"
	"regexp"
	"strings"

	"cyberjungle/internal/media"
)

var speakerTag = regexp.MustCompile(`Speaker\s*[12]:`)

// SpeechSynthesizer turns text into a WAV data URI, switching to two voices
// when the text is written as a Speaker1/Speaker2 dialogue.
type SpeechSynthesizer struct {
	model SpeechModel
}

func NewSpeechSynthesizer(model SpeechModel) *SpeechSynthesizer {
	return &SpeechSynthesizer{model: model}
}

// SpeechConfigFor picks the synthesis mode for text.
func SpeechConfigFor(text, voice string) SpeechConfig {
	if speakerTag.MatchString(text) {
		return SpeechConfig{Speakers: []SpeakerVoice{
			{Speaker: "Speaker1", Voice: DefaultVoice},
			{Speaker: "Speaker2", Voice: SecondVoice},
		}}
	}
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}
	return SpeechConfig{Voice: voice}
}

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, in SpeechInput) (*SpeechOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, invalidInput("text is required")
	}
	audio, err := s.model.GenerateSpeech(ctx, in.Text, SpeechConfigFor(in.Text, in.Voice))
	if err != nil {
		return nil, providerFailure("synthesize speech", err)
	}
	if audio == nil || len(audio.Data) == 0 {
		return nil, notFound("audio payload")
	}
	wav, err := media.EncodeWAV(audio.Data, media.PCMFormatFromMIME(audio.MIMEType))
	if err != nil {
		return nil, providerFailure("encode wav", err)
	}
	return &SpeechOutput{AudioURL: media.Encode("audio/wav", wav)}, nil
}
