package ai

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultImageCount = 4
	imagePrompt       = "A high resolution, 4k, photorealistic image of: %s"
)

// ImageCreator fans a prompt out to a fixed number of independent generations.
// Any single failure fails the whole request.
type ImageCreator struct {
	model ImageModel
	count int
}

func NewImageCreator(model ImageModel, count int) *ImageCreator {
	if count <= 0 {
		count = DefaultImageCount
	}
	return &ImageCreator{model: model, count: count}
}

func (c *ImageCreator) CreateImages(ctx context.Context, in ImageInput) (*ImageOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) < MinPromptLength {
		return nil, invalidInput("prompt must be at least %d characters", MinPromptLength)
	}
	prompt = fmt.Sprintf(imagePrompt, prompt)

	urls := make([]string, c.count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.count; i++ {
		g.Go(func() error {
			img, err := c.model.GenerateImage(gctx, prompt)
			if err != nil {
				return providerFailure(fmt.Sprintf("generate image %d", i+1), err)
			}
			if img == nil || len(img.Data) == 0 {
				return notFound("image payload")
			}
			if !img.HasPrefix("image/") {
				return fmt.Errorf("%w: unexpected image content type %q", ErrProvider, img.MIMEType)
			}
			urls[i] = img.String()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ImageOutput{ImageURLs: urls}, nil
}
