package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	apiHealth     = "/health"
	apiHolders    = "/holders"
	apiModels     = "/models/"
	apiSynthesize = "/synthesize"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
	contentTypeOctet  = "application/octet-stream"
)

const (
	errFmtServiceErrorWithCode = "engine error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "engine returned %s, body: %s"
)

// Remote talks to a standalone synthesis runtime over HTTP.
type Remote struct {
	httpClient *http.Client
	baseURL    string
}

// ErrorResponse is the structured error body returned by the runtime.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

type holderCreated struct {
	ID string `json:"id"`
}

type synthesizeRequest struct {
	Ident string `json:"ident"`
	Text  string `json:"text"`
}

// NewRemote creates a client for the runtime at baseURL, for example
// "http://127.0.0.1:3000". The timeout applies to every request.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Init verifies that the runtime is reachable and healthy.
func (r *Remote) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for engine at %s: %w", r.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// NewHolder uploads the tokenizer and BERT model and returns a handle to the
// holder the runtime created for them.
func (r *Remote) NewHolder(ctx context.Context, tokenizer string, bert []byte) (Holder, error) {
	if tokenizer == "" {
		return nil, ErrEmptyTokenizer
	}
	if len(bert) == 0 {
		return nil, ErrEmptyBert
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePart(mw, "tokenizer", "tokenizer.json", []byte(tokenizer)); err != nil {
		return nil, err
	}
	if err := writePart(mw, "bert", "bert.onnx", bert); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+apiHolders, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create holder request: %w", err)
	}
	req.Header.Set(headerContentType, mw.FormDataContentType())
	req.Header.Set(headerAccept, contentTypeJSON)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send holder request to %s: %w", r.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var created holderCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode holder response: %w", err)
	}
	if created.ID == "" {
		return nil, errors.New("engine returned a holder without id")
	}

	return &remoteHolder{remote: r, id: created.ID}, nil
}

func writePart(mw *multipart.Writer, field, filename string, data []byte) error {
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}

type remoteHolder struct {
	remote *Remote
	id     string
	closed bool
}

func (h *remoteHolder) path(suffix string) string {
	return h.remote.baseURL + apiHolders + "/" + url.PathEscape(h.id) + suffix
}

func (h *remoteHolder) Load(ctx context.Context, ident string, model []byte) error {
	if h.closed {
		return ErrHolderClosed
	}
	if ident == "" {
		return ErrEmptyIdent
	}
	if len(model) == 0 {
		return ErrEmptyModel
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		h.path(apiModels+url.PathEscape(ident)), bytes.NewReader(model))
	if err != nil {
		return fmt.Errorf("failed to create load request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeOctet)

	resp, err := h.remote.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load model %q: %w", ident, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp)
	}
	return nil
}

// Synthesize returns the WAV bytes for text spoken by the model loaded as
// ident.
func (h *remoteHolder) Synthesize(ctx context.Context, ident, text string) ([]byte, error) {
	if h.closed {
		return nil, ErrHolderClosed
	}
	if ident == "" {
		return nil, ErrEmptyIdent
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(synthesizeRequest{Ident: ident, Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.path(apiSynthesize), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesize request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, contentTypeWAV)

	resp, err := h.remote.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send synthesize request to %s: %w", h.remote.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	if ct := resp.Header.Get(headerContentType); ct != contentTypeWAV {
		return nil, fmt.Errorf("unexpected content type: expected %s, got %s", contentTypeWAV, ct)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return audio, nil
}

// Close deletes the holder on the runtime. Closing twice is a no-op.
func (h *remoteHolder) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	h.closed = true

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.path(""), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create close request: %w", err)
	}

	resp, err := h.remote.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to close holder %s: %w", h.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNotFound {
		return parseErrorResponse(resp)
	}
	return nil
}

// parseErrorResponse prefers the runtime's JSON error body and falls back to
// the raw text.
func parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var errorResp ErrorResponse
	if err := json.Unmarshal(raw, &errorResp); err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(raw))
}
