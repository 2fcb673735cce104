package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cyberjungle/internal/models"
	"cyberjungle/internal/service/ai"
	"cyberjungle/internal/worker"
)

const (
	FeatureVideos     = "videos"
	FeatureAnimations = "animations"
	FeatureMedia      = "media"
)

var cooldownFeatures = map[string]bool{
	FeatureVideos:     true,
	FeatureAnimations: true,
	FeatureMedia:      true,
}

type Answerer interface {
	Answer(ctx context.Context, in ai.AnswerInput) (*ai.AnswerOutput, error)
}

type ContentWriter interface {
	WriteContent(ctx context.Context, in ai.ContentInput) (*ai.ContentOutput, error)
}

type ImageCreator interface {
	CreateImages(ctx context.Context, in ai.ImageInput) (*ai.ImageOutput, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, in ai.SpeechInput) (*ai.SpeechOutput, error)
}

type Animator interface {
	Animate(ctx context.Context, in ai.VideoInput) (*ai.VideoOutput, error)
}

type MediaKit interface {
	Generate(ctx context.Context, in ai.MediaInput) (*ai.MediaOutput, error)
}

// History records successful generations; failures never affect the response.
type History interface {
	RecordConversation(ctx context.Context, question, answer string) (*models.Conversation, error)
	RecordImages(ctx context.Context, prompt string, dataURIs []string) ([]*models.GeneratedImage, error)
	RecordAudio(ctx context.Context, text, voice, dataURI string) (*models.GeneratedAudio, error)
	RecordVideo(ctx context.Context, prompt string, kind models.VideoKind, dataURI string) (*models.GeneratedVideo, error)
	ListConversations(ctx context.Context, limit int) ([]models.Conversation, error)
	ListImages(ctx context.Context, limit int) ([]models.GeneratedImage, error)
	ListAudio(ctx context.Context, limit int) ([]models.GeneratedAudio, error)
	ListVideos(ctx context.Context, limit int) ([]models.GeneratedVideo, error)
}

type Dispatcher interface {
	Do(ctx context.Context, clientID string, task worker.Task) error
}

type Cooldowns interface {
	Start(ctx context.Context, feature, client string) error
	Remaining(ctx context.Context, feature, client string) (int, error)
	Period() time.Duration
}

type Deps struct {
	Answerer       Answerer
	ContentWriter  ContentWriter
	Images         ImageCreator
	Speech         SpeechSynthesizer
	Videos         ai.VideoCreator
	Animator       Animator
	MediaKit       MediaKit
	History        History
	Dispatcher     Dispatcher
	Cooldowns      Cooldowns
	RequestTimeout time.Duration
	MediaDir       string
	MediaPath      string
}

// Handler wires HTTP routes to the generation adapters.
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.deps.MediaDir != "" && h.deps.MediaPath != "" {
		router.Static(h.deps.MediaPath, h.deps.MediaDir)
	}

	api := router.Group("/api")
	api.POST("/answers", h.answer)
	api.POST("/content", h.writeContent)
	api.POST("/images", h.createImages)
	api.POST("/speech", h.synthesize)
	api.POST("/videos", h.createVideo)
	api.POST("/animations", h.animate)
	api.POST("/media", h.generateMedia)
	api.GET("/history/:kind", h.listHistory)
	api.GET("/cooldowns/:feature", h.cooldown)
}

func clientID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Client-ID")); id != "" {
		return id
	}
	return c.ClientIP()
}

// dispatch runs task on the worker pool under the request timeout and writes any error response.
func (h *Handler) dispatch(c *gin.Context, feature string, task func(ctx context.Context) error) bool {
	client := clientID(c)
	ctx := ai.WithClient(c.Request.Context(), client)

	if feature != "" && h.deps.Cooldowns != nil {
		left, err := h.deps.Cooldowns.Remaining(ctx, feature, client)
		if err != nil {
			slog.WarnContext(ctx, "read cooldown failed", "feature", feature, "error", err)
		} else if left > 0 {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "cooldown active, please wait", "retry_after": left})
			return false
		}
	}

	if h.deps.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.RequestTimeout)
		defer cancel()
	}

	var err error
	if h.deps.Dispatcher != nil {
		err = h.deps.Dispatcher.Do(ctx, client, task)
	} else {
		err = task(ctx)
	}
	if err == nil {
		return true
	}

	if feature != "" && h.deps.Cooldowns != nil && errors.Is(err, ai.ErrRateLimited) {
		if cerr := h.deps.Cooldowns.Start(context.WithoutCancel(ctx), feature, client); cerr != nil {
			slog.WarnContext(ctx, "start cooldown failed", "feature", feature, "error", cerr)
		}
	}
	h.writeError(c, err)
	return false
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, gin.H{"error": err.Error()}
	var opErr *ai.OperationError
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, worker.ErrDispatcherBusy):
		status = http.StatusTooManyRequests
		body = gin.H{"error": "server is busy, please retry", "retry_after": 1}
	case errors.Is(err, ai.ErrRateLimited):
		status = http.StatusTooManyRequests
		body["retry_after"] = h.cooldownSeconds()
	case errors.Is(err, ai.ErrPollExhausted), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &opErr), errors.Is(err, ai.ErrProvider), errors.Is(err, ai.ErrNotFound):
		status = http.StatusBadGateway
	case errors.Is(err, worker.ErrDispatcherClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "generation failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, body)
}

func (h *Handler) cooldownSeconds() int {
	if h.deps.Cooldowns == nil {
		return 60
	}
	return int(h.deps.Cooldowns.Period() / time.Second)
}

// persistCtx outlives the client connection so a disconnect does not drop the history write.
func persistCtx(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) answer(c *gin.Context) {
	var req ai.AnswerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len([]rune(strings.TrimSpace(req.Question))) < ai.MinPromptLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please enter a more detailed question"})
		return
	}
	var out *ai.AnswerOutput
	if !h.dispatch(c, "", func(ctx context.Context) (err error) {
		out, err = h.deps.Answerer.Answer(ctx, req)
		return err
	}) {
		return
	}
	resp := gin.H{"answer": out.Answer}
	if h.deps.History != nil {
		if rec, err := h.deps.History.RecordConversation(persistCtx(c), strings.TrimSpace(req.Question), out.Answer); err != nil {
			slog.WarnContext(c.Request.Context(), "record conversation failed", "error", err)
		} else {
			resp["record_id"] = rec.ID
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeContent(c *gin.Context) {
	var req ai.ContentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.ContentOutput
	if !h.dispatch(c, "", func(ctx context.Context) (err error) {
		out, err = h.deps.ContentWriter.WriteContent(ctx, req)
		return err
	}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": out.Content})
}

func (h *Handler) createImages(c *gin.Context) {
	var req ai.ImageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.ImageOutput
	if !h.dispatch(c, "", func(ctx context.Context) (err error) {
		out, err = h.deps.Images.CreateImages(ctx, req)
		return err
	}) {
		return
	}
	resp := gin.H{"image_urls": out.ImageURLs}
	if h.deps.History != nil {
		records, err := h.deps.History.RecordImages(persistCtx(c), strings.TrimSpace(req.Prompt), out.ImageURLs)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "record images failed", "error", err)
		}
		if len(records) > 0 {
			resp["images"] = records
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) synthesize(c *gin.Context) {
	var req ai.SpeechInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.SpeechOutput
	if !h.dispatch(c, "", func(ctx context.Context) (err error) {
		out, err = h.deps.Speech.Synthesize(ctx, req)
		return err
	}) {
		return
	}
	resp := gin.H{"audio_url": out.AudioURL}
	if h.deps.History != nil {
		voice := ai.SpeechConfigFor(req.Text, req.Voice).VoiceLabel()
		if rec, err := h.deps.History.RecordAudio(persistCtx(c), req.Text, voice, out.AudioURL); err != nil {
			slog.WarnContext(c.Request.Context(), "record audio failed", "error", err)
		} else {
			resp["record_id"] = rec.ID
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createVideo(c *gin.Context) {
	var req ai.VideoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.VideoOutput
	if !h.dispatch(c, FeatureVideos, func(ctx context.Context) (err error) {
		out, err = h.deps.Videos.CreateVideo(ctx, req)
		return err
	}) {
		return
	}
	h.respondVideo(c, req.Prompt, models.VideoKindText, out.VideoURL)
}

func (h *Handler) animate(c *gin.Context) {
	var req ai.VideoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.VideoOutput
	if !h.dispatch(c, FeatureAnimations, func(ctx context.Context) (err error) {
		out, err = h.deps.Animator.Animate(ctx, req)
		return err
	}) {
		return
	}
	h.respondVideo(c, req.Prompt, models.VideoKindAnimation, out.VideoURL)
}

func (h *Handler) respondVideo(c *gin.Context, prompt string, kind models.VideoKind, videoURL string) {
	resp := gin.H{"video_url": videoURL}
	if h.deps.History != nil {
		if rec, err := h.deps.History.RecordVideo(persistCtx(c), strings.TrimSpace(prompt), kind, videoURL); err != nil {
			slog.WarnContext(c.Request.Context(), "record video failed", "error", err)
		} else {
			resp["record_id"] = rec.ID
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) generateMedia(c *gin.Context) {
	var req ai.MediaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var out *ai.MediaOutput
	if !h.dispatch(c, FeatureMedia, func(ctx context.Context) (err error) {
		out, err = h.deps.MediaKit.Generate(ctx, req)
		return err
	}) {
		return
	}
	if h.deps.History != nil {
		ctx := persistCtx(c)
		voice := ai.SpeechConfigFor(out.Prompt, "").VoiceLabel()
		if _, err := h.deps.History.RecordAudio(ctx, out.Prompt, voice, out.AudioURL); err != nil {
			slog.WarnContext(ctx, "record media narration failed", "error", err)
		}
		if _, err := h.deps.History.RecordVideo(ctx, out.Prompt, models.VideoKindMediaKit, out.VideoURL); err != nil {
			slog.WarnContext(ctx, "record media video failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"prompt": out.Prompt, "audio_url": out.AudioURL, "video_url": out.VideoURL})
}

func (h *Handler) listHistory(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	var (
		items any
		err   error
	)
	switch c.Param("kind") {
	case "conversations":
		items, err = h.deps.History.ListConversations(ctx, limit)
	case "images":
		items, err = h.deps.History.ListImages(ctx, limit)
	case "audio":
		items, err = h.deps.History.ListAudio(ctx, limit)
	case "videos":
		items, err = h.deps.History.ListVideos(ctx, limit)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown history kind"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) cooldown(c *gin.Context) {
	feature := c.Param("feature")
	if !cooldownFeatures[feature] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown feature"})
		return
	}
	remaining := 0
	if h.deps.Cooldowns != nil {
		left, err := h.deps.Cooldowns.Remaining(c.Request.Context(), feature, clientID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		remaining = left
	}
	c.JSON(http.StatusOK, gin.H{"feature": feature, "remaining": remaining})
}
