package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recallhq/recall/internal/clients/openai"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

// EmptyResponsePlaceholder is returned when the model answers with
// nothing at all.
const EmptyResponsePlaceholder = "[empty response from model]"

// GenerationService turns a message list into plain text. The inference
// service's response shape varies by model and version; this service is
// the single place that absorbs that variability, so the rest of the
// pipeline only ever handles text.
type GenerationService struct {
	log *logger.Logger
	ai  openai.Client
}

func NewGenerationService(log *logger.Logger, ai openai.Client) *GenerationService {
	return &GenerationService{
		log: log.With("service", "GenerationService"),
		ai:  ai,
	}
}

func (s *GenerationService) Generate(ctx context.Context, messages []types.Message) (string, error) {
	if s == nil || s.ai == nil {
		return "", fmt.Errorf("generation service not configured")
	}
	raw, err := s.ai.GenerateRaw(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return NormalizeResponse(raw), nil
}

// NormalizeResponse flattens any known response shape to text. The chain
// is ordered; the first match wins:
//
//  1. nothing at all -> fixed placeholder
//  2. a bare string -> verbatim
//  3. a top-level "response" string field
//  4. a nested result.output_text field
//  5. an "output" array of items, each contributing its text / content /
//     output_text field (first present per item), empties dropped,
//     joined with newlines
//  6. anything else -> structural serialization, as a debug string of
//     last resort
func NormalizeResponse(resp any) string {
	if resp == nil {
		return EmptyResponsePlaceholder
	}

	if s, ok := resp.(string); ok {
		if s == "" {
			return EmptyResponsePlaceholder
		}
		return s
	}

	obj, isObj := resp.(map[string]any)
	if isObj {
		if s, ok := obj["response"].(string); ok {
			return s
		}

		if result, ok := obj["result"].(map[string]any); ok {
			if s, ok := result["output_text"].(string); ok && s != "" {
				return s
			}
		}

		if output, ok := obj["output"].([]any); ok {
			parts := make([]string, 0, len(output))
			for _, item := range output {
				if t := itemText(item); t != "" {
					parts = append(parts, t)
				}
			}
			if joined := strings.Join(parts, "\n"); joined != "" {
				return joined
			}
		}
	}

	if raw, err := json.Marshal(resp); err == nil {
		return string(raw)
	}
	return fmt.Sprint(resp)
}

// itemText extracts one output item's text, preferring its "text" field,
// then "content", then "output_text". A content field that is itself an
// array of parts (the Responses API shape) contributes the text of each
// part.
func itemText(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"text", "content", "output_text"} {
		v, present := obj[key]
		if !present || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				if s := itemText(p); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "\n")
		default:
			return ""
		}
	}
	return ""
}
