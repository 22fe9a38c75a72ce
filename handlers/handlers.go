// Package handlers wires the web form to validation, the synthesis engine
// and the clip store.
package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/CorrelAid/sbv2_web/engine"
	"github.com/CorrelAid/sbv2_web/models"
	"github.com/CorrelAid/sbv2_web/operations"
	"github.com/CorrelAid/sbv2_web/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const turnstileField = "cf-turnstile-response"

// TokenVerifier checks the captcha token sent with a submission.
type TokenVerifier interface {
	Verify(ctx context.Context, token, ip string) error
}

type Handler struct {
	DB            *memdb.MemDB
	Engine        engine.Engine
	Verifier      TokenVerifier
	Limits        validators.Limits
	SiteKey       string
	ClipTTL       time.Duration
	EngineTimeout time.Duration
	Now           func() time.Time
}

type page struct {
	Errors  map[string]string
	Error   string
	Text    string
	SiteKey string
	Clip    *clipView
}

type clipView struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	DurationMs int64         `json:"duration_ms"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"-"`
}

type errorBody struct {
	Error  string            `json:"error,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Register mounts the routes. guards run in front of the synthesize route
// only.
func (h *Handler) Register(r gin.IRouter, guards ...gin.HandlerFunc) {
	r.GET("/", h.Index)
	r.POST("/synthesize", append(guards, h.Synthesize)...)
	r.GET("/audio/:id", h.Audio)
	r.GET("/healthz", h.Health)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) newPage() page {
	return page{Errors: map[string]string{}, SiteKey: h.SiteKey}
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", h.newPage())
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handler) Synthesize(c *gin.Context) {
	p := h.newPage()

	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			p.Error = "The upload is too large."
			h.fail(c, http.StatusRequestEntityTooLarge, p)
			return
		}
		// Anything else surfaces as missing fields below.
	}
	p.Text = c.PostForm(validators.FieldText)

	if h.Verifier != nil {
		if err := h.Verifier.Verify(c.Request.Context(), c.PostForm(turnstileField), c.ClientIP()); err != nil {
			if errors.Is(err, validators.ErrVerification) {
				p.Error = "Captcha service is unavailable, please try again later."
				h.fail(c, http.StatusBadGateway, p)
				return
			}
			p.Error = "Captcha verification failed, please try again."
			h.fail(c, http.StatusForbidden, p)
			return
		}
	}

	formData := models.FormData{
		Bert:      formFile(c, validators.FieldBert),
		Tokenizer: formFile(c, validators.FieldTokenizer),
		Model:     formFile(c, validators.FieldModel),
		Text:      p.Text,
	}

	processed, err := validators.ValidateProcessFormData(formData, h.Limits)
	if err != nil {
		var formErr *validators.FormError
		if errors.As(err, &formErr) {
			p.Errors = formErr.Fields
		} else {
			p.Error = err.Error()
		}
		h.fail(c, http.StatusBadRequest, p)
		return
	}

	ctx := c.Request.Context()
	if h.EngineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.EngineTimeout)
		defer cancel()
	}

	audio, err := operations.Synthesize(ctx, h.Engine, processed)
	if err != nil {
		log.Printf("Synthesis failed: %v", err)
		p.Error = "Speech synthesis failed."
		h.fail(c, http.StatusBadGateway, p)
		return
	}

	info, err := engine.InspectWAV(audio)
	if err != nil {
		log.Printf("Engine returned unusable audio (%d bytes): %v", len(audio), err)
		p.Error = "Speech synthesis failed."
		h.fail(c, http.StatusBadGateway, p)
		return
	}

	now := h.now()
	clip := &models.Clip{
		ID:         uuid.NewString(),
		Audio:      audio,
		Text:       processed.Text,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Duration:   info.Duration,
		Created:    now.Format(time.RFC1123),
		Expiry:     now.Add(h.ClipTTL).Format(time.RFC1123),
	}
	if err := operations.InsertClip(h.DB, clip); err != nil {
		log.Printf("Failed to store clip: %v", err)
		p.Error = "Could not store the generated audio."
		h.fail(c, http.StatusInternalServerError, p)
		return
	}

	p.Clip = &clipView{
		ID:         clip.ID,
		URL:        "/audio/" + clip.ID,
		DurationMs: clip.Duration.Milliseconds(),
		SampleRate: clip.SampleRate,
		Duration:   clip.Duration.Round(time.Millisecond),
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, p.Clip)
		return
	}
	c.HTML(http.StatusOK, "index.html", p)
}

func (h *Handler) Audio(c *gin.Context) {
	clip, err := operations.GetClip(h.DB, c.Param("id"), h.now())
	if err != nil {
		if !errors.Is(err, operations.ErrClipNotFound) {
			log.Printf("Failed to load clip: %v", err)
		}
		c.String(http.StatusNotFound, "audio not found")
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+clip.ID+`.wav"`)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "audio/wav", clip.Audio)
}

func (h *Handler) fail(c *gin.Context, status int, p page) {
	if wantsJSON(c) {
		body := errorBody{Error: p.Error}
		if len(p.Errors) > 0 {
			body.Errors = p.Errors
		}
		c.JSON(status, body)
		return
	}
	c.HTML(status, "index.html", p)
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// formFile returns nil when the field is absent so validation can report it.
func formFile(c *gin.Context, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}
