package tokens

import (
	"testing"

	"github.com/tiktoken-go/tokenizer"
)

func TestCounter_CountMessages(t *testing.T) {
	c := NewCounter()

	tests := []struct {
		name      string
		model     string
		messages  any
		minTokens int
		maxTokens int
	}{
		{
			name:  "simple message",
			model: "gpt-4o",
			messages: []any{
				map[string]any{"role": "user", "content": "Hello, how are you today?"},
			},
			minTokens: 8,
			maxTokens: 20,
		},
		{
			name:  "common words",
			model: "gpt-4",
			messages: []any{
				map[string]any{"role": "user", "content": "The quick brown fox jumps over the lazy dog."},
			},
			minTokens: 12,
			maxTokens: 25,
		},
		{
			name:  "content parts",
			model: "gpt-4o",
			messages: []any{
				map[string]any{"role": "user", "content": []any{
					map[string]any{"type": "text", "text": "Describe this picture"},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/a.png"}},
				}},
			},
			minTokens: 7,
			maxTokens: 20,
		},
		{
			name:  "tool call",
			model: "gpt-4o",
			messages: []any{
				map[string]any{"role": "assistant", "tool_calls": []any{
					map[string]any{"function": map[string]any{"name": "get_weather", "arguments": `{"city":"Paris"}`}},
				}},
			},
			minTokens: 10,
			maxTokens: 30,
		},
		{
			name:      "empty list",
			model:     "gpt-x",
			messages:  []any{},
			minTokens: assistantPriming,
			maxTokens: assistantPriming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.CountMessages(tt.model, tt.messages)
			if err != nil {
				t.Fatalf("CountMessages() error = %v", err)
			}
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("CountMessages() = %d, want between %d and %d", got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestCounter_CountMessages_NotAList(t *testing.T) {
	c := NewCounter()
	if _, err := c.CountMessages("gpt-4o", "hello"); err == nil {
		t.Error("CountMessages() expected error for non-list messages")
	}
}

func TestCounter_CountText(t *testing.T) {
	c := NewCounter()
	n, err := c.CountText("gpt-4o", "hello world")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if n < 1 || n > 4 {
		t.Errorf("CountText() = %d, want between 1 and 4", n)
	}
}

func TestModelToEncoding(t *testing.T) {
	tests := []struct {
		model string
		want  tokenizer.Encoding
	}{
		{"gpt-4o-mini", tokenizer.O200kBase},
		{"gpt-4-turbo", tokenizer.Cl100kBase},
		{"gpt-3.5-turbo", tokenizer.Cl100kBase},
		{"text-davinci-003", tokenizer.P50kBase},
		{"davinci", tokenizer.R50kBase},
		{"some-future-model", tokenizer.O200kBase},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelToEncoding(tt.model); got != tt.want {
				t.Errorf("modelToEncoding(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
