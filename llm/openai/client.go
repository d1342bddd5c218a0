// Package openai implements conversation.Completer on the OpenAI chat completions API
// (and compatible servers reachable through a custom base URL).
package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/conversation"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT3Dot5Turbo

// ErrNoChoices is returned when the API answers without a choice.
var ErrNoChoices = errors.New("no choices in response")

// Config holds the connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client is a conversation.Completer. Safe for concurrent use.
type Client struct {
	api   *openai.Client
	model string
	log   zerolog.Logger
}

var _ conversation.Completer = (*Client)(nil)

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Client{
		api:   openai.NewClientWithConfig(oc),
		model: model,
		log:   log,
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one chat completion request. Tool declarations and tool choice are only sent
// when req.Tools is not empty.
func (c *Client) Complete(ctx context.Context, req conversation.Request) (conversation.Response, error) {
	start := time.Now()
	creq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		creq.Tools = toOpenAITools(req.Tools)
		choice := req.ToolChoice
		if choice == "" {
			choice = conversation.ToolChoiceAuto
		}
		creq.ToolChoice = choice
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		c.log.Error().Err(err).Str("model", c.model).Dur("elapsed", time.Since(start)).Msg("chat completion failed")
		return conversation.Response{}, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return conversation.Response{}, ErrNoChoices
	}
	msg := resp.Choices[0].Message
	out := conversation.Response{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, conversation.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	c.log.Debug().
		Str("model", c.model).
		Int("tool_calls", len(out.ToolCalls)).
		Int("content_length", len(out.Content)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")
	return out, nil
}

func toOpenAIMessages(msgs []conversation.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		switch {
		case m.Role == conversation.RoleTool:
			om.ToolCallID = m.ToolCallID
		case m.ToolCall != nil:
			om.Content = ""
			om.ToolCalls = []openai.ToolCall{{
				ID:   m.ToolCall.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      m.ToolCall.Name,
					Arguments: m.ToolCall.Arguments,
				},
			}}
		}
		out = append(out, om)
	}
	return out
}

func toOpenAITools(decls []tooldesk.Declaration) []openai.Tool {
	out := make([]openai.Tool, len(decls))
	for i, d := range decls {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}
