package ai

import (
	"context"
	"fmt"
	"strings"
)

const answerPrompt = "You are a helpful AI assistant. Answer the following question to the best of your ability.\n\nQuestion: %s"

const contentPrompt = "You are a professional content writer. Write engaging, well-structured content " +
	"that can be read aloud as narration for the following brief.\n\nBrief: %s"

// Answerer answers free-form questions with the configured chat model.
type Answerer struct {
	model TextModel
}

func NewAnswerer(model TextModel) *Answerer {
	return &Answerer{model: model}
}

func (a *Answerer) Answer(ctx context.Context, in AnswerInput) (*AnswerOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, invalidInput("question is required")
	}
	answer, err := a.model.Generate(ctx, fmt.Sprintf(answerPrompt, question))
	if err != nil {
		return nil, providerFailure("answer question", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, notFound("model returned an empty answer")
	}
	return &AnswerOutput{Answer: answer}, nil
}

// ContentWriter drafts narration-ready text from a short brief.
type ContentWriter struct {
	model TextModel
}

func NewContentWriter(model TextModel) *ContentWriter {
	return &ContentWriter{model: model}
}

func (w *ContentWriter) WriteContent(ctx context.Context, in ContentInput) (*ContentOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) < MinPromptLength {
		return nil, invalidInput("prompt must be at least %d characters", MinPromptLength)
	}
	content, err := w.model.Generate(ctx, fmt.Sprintf(contentPrompt, prompt))
	if err != nil {
		return nil, providerFailure("write content", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, notFound("model returned empty content")
	}
	return &ContentOutput{Content: content}, nil
}
