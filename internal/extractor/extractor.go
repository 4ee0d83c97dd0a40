// Package extractor reads the fixed receipt field set out of an uploaded
// document with a generative model.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/rendiciones/internal/domain"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Extractor turns document bytes into extracted fields.
type Extractor interface {
	Extract(ctx context.Context, content []byte, mimeType string) (domain.ExtractedFields, error)
}

// GeminiExtractor is the Extractor backed by the Gemini API. Credentials come
// from the environment the way genai.NewClient resolves them.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a Gemini client for model.
func NewGeminiExtractor(ctx context.Context, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Extract sends the document inline with the extraction prompt.
func (e *GeminiExtractor) Extract(ctx context.Context, content []byte, mimeType string) (domain.ExtractedFields, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: Prompt()},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     content,
					},
				},
			},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("Extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return domain.ExtractedFields{}, fmt.Errorf("Extract: %w", ErrEmptyResponse)
	}
	return DecodeFields(raw)
}

// DecodeFields parses a model answer into the extracted field set. Values of
// the wrong shape are dropped rather than failing the document.
func DecodeFields(raw string) (domain.ExtractedFields, error) {
	clean := cleanModelJSON(raw)

	var fields domain.ExtractedFields
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("DecodeFields: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return fields, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// drop the ``` or ```json line
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
