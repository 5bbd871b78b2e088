// Package translate streams Malay and Mandarin text translation from
// the Gemini API. Direction is detected from the input: Malay in,
// Mandarin out, and the reverse.
package translate

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the text translation model.
const DefaultModel = "gemini-2.5-flash"

const defaultTemperature float32 = 0.3

// systemInstruction keeps the output to the translation alone, in an
// everyday register rather than textbook phrasing.
const systemInstruction = "You are an expert translator between Malay and Mandarin Chinese. " +
	"If the input is Malay, translate it to Mandarin Chinese. If the input is Mandarin Chinese, translate it to Malay. " +
	"You understand regional dialects, slang, and informal speech in both languages. " +
	"Translate into simple, natural, everyday language that a child could understand, not formal or textbook phrasing. " +
	"For example, \"Situasi ekonomi semasa agak meruncing.\" becomes \"现在大家的钱都不够用，很难赚钱。\". " +
	"Respond with the translation only. No explanations, no romanization, no quotes."

// Streamer is the streaming generation surface of the Gemini client.
// Satisfied by genai.Models.
type Streamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// SinkFunc receives the cumulative translation after every chunk.
type SinkFunc func(text string)

// Client translates text via the Gemini API.
type Client struct {
	models Streamer
	model  string
}

// NewClient builds a translation client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{models: gc.Models, model: DefaultModel}, nil
}

// NewClientWith wires an existing streamer, for embedding and tests.
func NewClientWith(models Streamer, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}
}

// Stream translates text, invoking sink with the cumulative result as
// chunks arrive, and returns the final translation. Blank input is a
// no-op: no request is made and the result is empty. Errors are
// returned as-is with no retry; the caller decides whether to submit
// again.
func (c *Client) Stream(ctx context.Context, text string, sink SinkFunc) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](defaultTemperature),
	}

	var full strings.Builder
	for resp, err := range c.models.GenerateContentStream(ctx, c.model, genai.Text(text), cfg) {
		if err != nil {
			return full.String(), fmt.Errorf("translate: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if sink != nil {
			sink(full.String())
		}
	}
	return full.String(), nil
}
