// Package history persists generation results after the adapters return them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cyberjungle/internal/media"
	"cyberjungle/internal/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Blobs is the object store generated media is uploaded to before it is recorded.
type Blobs interface {
	Put(ctx context.Context, folder, mimeType string, data []byte) (key string, url string, err error)
	Delete(key string) error
}

type Service struct {
	db    *sql.DB
	blobs Blobs
	now   func() time.Time
}

func NewService(db *sql.DB, blobs Blobs) *Service {
	return &Service{db: db, blobs: blobs, now: func() time.Time { return time.Now().UTC() }}
}

// RecordConversation stores an answered question.
func (s *Service) RecordConversation(ctx context.Context, question, answer string) (*models.Conversation, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (question, answer, created_at) VALUES (?, ?, ?)`,
		question, answer, now,
	)
	if err != nil {
		return nil, fmt.Errorf("record conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	return &models.Conversation{ID: id, Question: question, Answer: answer, CreatedAt: now}, nil
}

// RecordImages uploads every image and then records its durable URL.
func (s *Service) RecordImages(ctx context.Context, prompt string, dataURIs []string) ([]*models.GeneratedImage, error) {
	records := make([]*models.GeneratedImage, 0, len(dataURIs))
	for _, raw := range dataURIs {
		key, url, err := s.upload(ctx, "images", raw)
		if err != nil {
			return records, err
		}
		now := s.now()
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO generated_images (prompt, image_url, blob_key, created_at) VALUES (?, ?, ?, ?)`,
			prompt, url, key, now,
		)
		if err != nil {
			s.discard(ctx, key)
			return records, fmt.Errorf("record image: %w", err)
		}
		id, _ := res.LastInsertId()
		records = append(records, &models.GeneratedImage{ID: id, Prompt: prompt, ImageURL: url, BlobKey: key, CreatedAt: now})
	}
	return records, nil
}

func (s *Service) RecordAudio(ctx context.Context, text, voice, dataURI string) (*models.GeneratedAudio, error) {
	key, url, err := s.upload(ctx, "audio", dataURI)
	if err != nil {
		return nil, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_audio (text, voice, audio_url, blob_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		text, voice, url, key, now,
	)
	if err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("record audio: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.GeneratedAudio{ID: id, Text: text, Voice: voice, AudioURL: url, BlobKey: key, CreatedAt: now}, nil
}

func (s *Service) RecordVideo(ctx context.Context, prompt string, kind models.VideoKind, dataURI string) (*models.GeneratedVideo, error) {
	key, url, err := s.upload(ctx, "videos", dataURI)
	if err != nil {
		return nil, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_videos (prompt, kind, video_url, blob_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		prompt, string(kind), url, key, now,
	)
	if err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("record video: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.GeneratedVideo{ID: id, Prompt: prompt, Kind: kind, VideoURL: url, BlobKey: key, CreatedAt: now}, nil
}

func (s *Service) upload(ctx context.Context, folder, raw string) (string, string, error) {
	if s.blobs == nil {
		return "", "", errors.New("blob store not configured")
	}
	uri, err := media.ParseDataURI(raw)
	if err != nil {
		return "", "", fmt.Errorf("decode %s payload: %w", folder, err)
	}
	key, url, err := s.blobs.Put(ctx, folder, uri.MIMEType, uri.Data)
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", folder, err)
	}
	return key, url, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.blobs.Delete(key); err != nil {
		slog.WarnContext(ctx, "discard orphan blob failed", "key", key, "error", err)
	}
}
