package runway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cyberjungle/internal/media"
	"cyberjungle/internal/service/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVideoSendsRequestAndParsesOutput(t *testing.T) {
	var got generationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/video/generations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen_1","output":[{"url":"https://cdn.runway.example/v.mp4"}]}`))
	}))
	defer srv.Close()

	img := &media.DataURI{MIMEType: "image/png", Data: []byte{1, 2, 3}}
	asset, err := New(Config{APIKey: "secret", BaseURL: srv.URL + "/"}).GenerateVideo(context.Background(), ai.VideoRequest{
		Prompt: "a jaguar walking through rain",
		Image:  img,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.runway.example/v.mp4", asset.URI)
	assert.Equal(t, "a jaguar walking through rain", got.Prompt)
	assert.Equal(t, img.String(), got.Image)
	assert.Equal(t, "720p", got.Resolution)
	assert.Equal(t, 5, got.Duration)
}

func TestGenerateVideoErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, ai.ErrRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, ai.ErrProvider},
		{"missing output", http.StatusOK, `{"output":[]}`, ai.ErrNotFound},
		{"bad json", http.StatusOK, `{`, ai.ErrProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).GenerateVideo(context.Background(), ai.VideoRequest{Prompt: "p"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
