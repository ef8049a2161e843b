package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// GroqClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint
// with one chunk's bytes per request.
type GroqClient struct {
	url     string
	apiKey  string
	model   string
	client  *http.Client
	timeout time.Duration
}

// groqResponse is the parsed verbose_json response body.
type groqResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewGroqClient creates a transcription client for an OpenAI-compatible
// endpoint. The Groq endpoint enforces a per-request payload cap, which is
// why callers chunk audio before transcribing.
func NewGroqClient(url, apiKey, model string, timeout time.Duration) *GroqClient {
	return &GroqClient{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (gc *GroqClient) Name() string  { return "groq" }
func (gc *GroqClient) Model() string { return gc.model }

// Transcribe sends one audio chunk and returns the result. The request body
// is built fresh on every call, so a caller-driven retry sends an identical
// payload.
func (gc *GroqClient) Transcribe(ctx context.Context, chunk Chunk) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fmt.Sprintf("chunk_%d.m4a", chunk.Index))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(chunk.Data); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if gc.model != "" {
		w.WriteField("model", gc.model)
	}

	// verbose_json carries segment-level timestamps
	w.WriteField("response_format", "verbose_json")

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+gc.apiKey)

	resp, err := gc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result groqResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Response{
		Text:     result.Text,
		Language: result.Language,
		Duration: result.Duration,
	}
	for _, s := range result.Segments {
		out.Segments = append(out.Segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return out, nil
}
