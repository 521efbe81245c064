// Package ocr turns recipe photos into text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/shared"
)

// DefaultEndpoint is the OCR.space parse endpoint.
const DefaultEndpoint = "https://api.ocr.space/parse/image"

// ErrNoText is returned when the service recognized no text in the image.
var ErrNoText = errors.New("no text found in image")

// Recognizer extracts the text printed in an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// SpaceClient is a client for the OCR.space API.
type SpaceClient struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *http.Client
	recorder   shared.CallRecorder
}

// Option configures a SpaceClient.
type Option func(*SpaceClient)

// WithEndpoint overrides the parse endpoint.
func WithEndpoint(url string) Option {
	return func(c *SpaceClient) { c.endpoint = url }
}

// WithLanguage sets the OCR language code, "eng" by default.
func WithLanguage(lang string) Option {
	return func(c *SpaceClient) { c.language = lang }
}

// WithHTTPClient replaces the default client, which times out after 30 seconds.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SpaceClient) { c.httpClient = hc }
}

// WithRecorder reports every call to rec.
func WithRecorder(rec shared.CallRecorder) Option {
	return func(c *SpaceClient) { c.recorder = rec }
}

// NewSpaceClient creates a new OCR.space client.
func NewSpaceClient(apiKey string, opts ...Option) *SpaceClient {
	c := &SpaceClient{
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		language:   "eng",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type spaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorMessage flattens ErrorMessage, which the service sends either as a
// string or as a list of strings.
func (r spaceResponse) errorMessage() string {
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(r.ErrorMessage, &s); err == nil {
		return s
	}
	return "unknown error"
}

// Recognize uploads the image and returns the text of the first parsed result.
func (c *SpaceClient) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	var text string
	err := shared.Track(ctx, c.recorder, "ocr.space", "recognize", func() error {
		var err error
		text, err = c.recognize(ctx, image, mimeType)
		return err
	})
	return text, err
}

func (c *SpaceClient) recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("failed to recognize text: empty image")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "photo"+extension(mimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	_ = w.WriteField("language", c.language)
	_ = w.WriteField("apikey", c.apiKey)
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OCR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("OCR service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed spaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("OCR processing failed: %s", parsed.errorMessage())
	}
	if len(parsed.ParsedResults) == 0 || strings.TrimSpace(parsed.ParsedResults[0].ParsedText) == "" {
		return "", ErrNoText
	}
	return parsed.ParsedResults[0].ParsedText, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
