package models

import "time"

type VideoKind string

const (
	VideoKindText      VideoKind = "video"
	VideoKindAnimation VideoKind = "animation"
	VideoKindMediaKit  VideoKind = "media"
)

// GeneratedImage points at a stored image blob. ImageURL is the durable public URL.
type GeneratedImage struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	ImageURL  string    `json:"image_url"`
	BlobKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type GeneratedAudio struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	AudioURL  string    `json:"audio_url"`
	BlobKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type GeneratedVideo struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	Kind      VideoKind `json:"kind"`
	VideoURL  string    `json:"video_url"`
	BlobKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
