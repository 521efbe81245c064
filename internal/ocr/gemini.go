package ocr

import (
	"context"
	"fmt"
	"strings"

	"meal-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const visionPrompt = `Transcribe all text in this photo of a recipe exactly as printed.
Keep the original line breaks. Return only the transcription, with no commentary.
If the photo contains no text, return an empty response.`

// GeminiRecognizer reads recipe photos with a Gemini vision model.
type GeminiRecognizer struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	recorder shared.CallRecorder
}

// NewGeminiRecognizer creates a recognizer. Extra client options (endpoint,
// HTTP client) are passed through to the SDK.
func NewGeminiRecognizer(ctx context.Context, apiKey, modelName string, rec shared.CallRecorder, opts ...option.ClientOption) (*GeminiRecognizer, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	return &GeminiRecognizer{client: client, model: model, recorder: rec}, nil
}

// Recognize sends the image with a transcription prompt.
func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	var text string
	err := shared.Track(ctx, g.recorder, "gemini", "recognize", func() error {
		resp, err := g.model.GenerateContent(ctx, genai.ImageData(imageFormat(mimeType), image), genai.Text(visionPrompt))
		if err != nil {
			return fmt.Errorf("failed to generate content: %w", err)
		}
		text = candidateText(resp)
		if strings.TrimSpace(text) == "" {
			return ErrNoText
		}
		return nil
	})
	return text, err
}

// Close closes the underlying Gemini client.
func (g *GeminiRecognizer) Close() error {
	return g.client.Close()
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// imageFormat maps a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) string {
	if f, ok := strings.CutPrefix(mimeType, "image/"); ok && f != "" {
		return f
	}
	return "jpeg"
}
