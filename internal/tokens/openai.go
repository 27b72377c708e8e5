// Package tokens estimates prompt token counts for chat-completion requests
// whose responses did not report usage.
package tokens

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Chat framing overhead, per OpenAI's counting guidance for gpt-3.5/gpt-4 era models.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	tokensPerToolUse = 3
	assistantPriming = 3
)

// Counter counts prompt tokens with tiktoken encodings. It is safe for
// concurrent use; codecs are loaded lazily and cached per encoding.
type Counter struct {
	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

// NewCounter creates a Counter with an empty codec cache.
func NewCounter() *Counter {
	return &Counter{
		codecCache: make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

func (c *Counter) getCodec(model string) (tokenizer.Codec, error) {
	encoding := modelToEncoding(model)

	c.cacheMu.RLock()
	if cached, ok := c.codecCache[encoding]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	c.cacheMu.Lock()
	c.codecCache[encoding] = codec
	c.cacheMu.Unlock()

	return codec, nil
}

// modelToEncoding maps model names to tiktoken encodings.
//
//   - O200kBase: gpt-5, gpt-4.1, gpt-4o, o-series and unknown models
//   - Cl100kBase: gpt-4, gpt-3.5-turbo, text-embedding
//   - P50kBase: text-davinci
//   - R50kBase: davinci, curie, babbage, ada
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "gpt-4.1"), strings.HasPrefix(model, "gpt-41"),
		strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase

	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"),
		strings.HasPrefix(model, "text-embedding"):
		return tokenizer.Cl100kBase

	case strings.HasPrefix(model, "text-davinci"):
		return tokenizer.P50kBase

	case model == "davinci" || model == "curie" || model == "babbage" || model == "ada":
		return tokenizer.R50kBase

	default:
		return tokenizer.O200kBase
	}
}

// CountMessages counts the prompt tokens of a decoded chat "messages" array.
// Each element is expected to be a JSON object with a role and either string
// content or an array of content parts.
func (c *Counter) CountMessages(model string, messages any) (int, error) {
	list, ok := messages.([]any)
	if !ok {
		return 0, fmt.Errorf("messages must be a list, got %T", messages)
	}

	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}

	count := func(s string) int {
		if s == "" {
			return 0
		}
		ids, _, _ := codec.Encode(s)
		return len(ids)
	}

	total := 0
	for _, item := range list {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}

		total += tokensPerMessage + tokensPerRole

		if name, ok := msg["name"].(string); ok {
			total += count(name)
		}

		switch content := msg["content"].(type) {
		case string:
			total += count(content)
		case []any:
			for _, p := range content {
				part, ok := p.(map[string]any)
				if !ok {
					continue
				}
				if text, ok := part["text"].(string); ok {
					total += count(text)
				}
			}
		}

		if calls, ok := msg["tool_calls"].([]any); ok {
			for _, tc := range calls {
				call, ok := tc.(map[string]any)
				if !ok {
					continue
				}
				fn, _ := call["function"].(map[string]any)
				if fn == nil {
					continue
				}
				name, _ := fn["name"].(string)
				total += count(name)
				switch args := fn["arguments"].(type) {
				case string:
					total += count(args)
				case nil:
				default:
					b, _ := json.Marshal(args)
					total += count(string(b))
				}
				total += tokensPerToolUse
			}
		}
	}

	return total + assistantPriming, nil
}

// CountText counts tokens for a plain text string.
func (c *Counter) CountText(model, text string) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
