package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURIRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
	uri := Encode("image/png", payload)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	parsed, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", parsed.MIMEType)
	assert.Equal(t, payload, parsed.Data)
	assert.True(t, parsed.HasPrefix("image/"))
	assert.False(t, parsed.HasPrefix("video/"))
}

func TestParseDataURIRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"https://example.com/a.png",
		"data:image/png,plain",
		"data:;base64,AAAA",
		"data:image/png;base64",
		"data:image/png;base64,***",
	}
	for _, raw := range cases {
		_, err := ParseDataURI(raw)
		assert.ErrorIs(t, err, ErrMalformedDataURI, raw)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav, err := EncodeWAV(pcm, DefaultPCMFormat)
	require.NoError(t, err)
	require.Len(t, wav, wavHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	format, data, err := DecodeWAVHeader(wav)
	require.NoError(t, err)
	assert.Equal(t, PCMFormat{Channels: 1, SampleRate: 24000, BitDepth: 16}, format)
	assert.Equal(t, pcm, data)
}

func TestEncodeWAVRejectsBadFormat(t *testing.T) {
	_, err := EncodeWAV([]byte{0}, PCMFormat{Channels: 1, SampleRate: 24000, BitDepth: 12})
	assert.Error(t, err)
}

func TestPCMFormatFromMIME(t *testing.T) {
	assert.Equal(t, DefaultPCMFormat, PCMFormatFromMIME(""))
	assert.Equal(t, 16000, PCMFormatFromMIME("audio/L16;codec=pcm;rate=16000").SampleRate)
	assert.Equal(t, 2, PCMFormatFromMIME("audio/L16;rate=24000;channels=2").Channels)
	assert.Equal(t, DefaultPCMFormat, PCMFormatFromMIME("audio/pcm;;;bad"))
}

func TestHTTPFetcherSendsHeaderAndReadsBody(t *testing.T) {
	body := bytes.Repeat([]byte{7}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "video/mp4; charset=binary")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	data, ct, err := NewHTTPFetcher("x-goog-api-key", "secret").Fetch(context.Background(), srv.URL+"/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", ct)
	assert.Equal(t, body, data)

	_, _, err = NewHTTPFetcher("", "").Fetch(context.Background(), srv.URL+"/v.mp4")
	assert.ErrorContains(t, err, "401")
}

func TestHTTPFetcherRejectsScheme(t *testing.T) {
	_, _, err := NewHTTPFetcher("", "").Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestHTTPFetcherRejectsOversizedAsset(t *testing.T) {
	payload := bytes.Repeat([]byte{0}, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.URL.Path == "/chunked.mp4" {
			// flushing before the body forces chunked encoding, so no length is announced
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher("", "")
	fetcher.MaxSize = 1024

	_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/sized.mp4")
	assert.ErrorIs(t, err, ErrAssetTooLarge)

	data, _, err := fetcher.Fetch(context.Background(), srv.URL+"/chunked.mp4")
	assert.ErrorIs(t, err, ErrAssetTooLarge)
	assert.Nil(t, data)

	fetcher.MaxSize = int64(len(payload))
	data, ct, err := fetcher.Fetch(context.Background(), srv.URL+"/chunked.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", ct)
	assert.Len(t, data, len(payload))
}
