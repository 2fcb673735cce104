package history

import (
	"context"
	"fmt"

	"cyberjungle/internal/models"
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ListConversations returns the newest conversations first.
func (s *Service) ListConversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at FROM conversations ORDER BY created_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Question, &c.Answer, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *Service) ListImages(ctx context.Context, limit int) ([]models.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, image_url, blob_key, created_at FROM generated_images ORDER BY created_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	items := []models.GeneratedImage{}
	for rows.Next() {
		var img models.GeneratedImage
		if err := rows.Scan(&img.ID, &img.Prompt, &img.ImageURL, &img.BlobKey, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		items = append(items, img)
	}
	return items, rows.Err()
}

func (s *Service) ListAudio(ctx context.Context, limit int) ([]models.GeneratedAudio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, voice, audio_url, blob_key, created_at FROM generated_audio ORDER BY created_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list audio: %w", err)
	}
	defer rows.Close()

	items := []models.GeneratedAudio{}
	for rows.Next() {
		var a models.GeneratedAudio
		if err := rows.Scan(&a.ID, &a.Text, &a.Voice, &a.AudioURL, &a.BlobKey, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audio: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *Service) ListVideos(ctx context.Context, limit int) ([]models.GeneratedVideo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, kind, video_url, blob_key, created_at FROM generated_videos ORDER BY created_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	items := []models.GeneratedVideo{}
	for rows.Next() {
		var v models.GeneratedVideo
		var kind string
		if err := rows.Scan(&v.ID, &v.Prompt, &kind, &v.VideoURL, &v.BlobKey, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.Kind = models.VideoKind(kind)
		items = append(items, v)
	}
	return items, rows.Err()
}
