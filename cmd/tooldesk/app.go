package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/config"
	"github.com/skosovsky/tooldesk/conversation"
	"github.com/skosovsky/tooldesk/llm/openai"
	"github.com/skosovsky/tooldesk/policy"
	"github.com/skosovsky/tooldesk/prompt"
	"github.com/skosovsky/tooldesk/toolkits/convert"
	"github.com/skosovsky/tooldesk/toolkits/currency"
	"github.com/skosovsky/tooldesk/toolkits/weather"
)

// app is the wired object graph of one command invocation.
type app struct {
	cfg      *config.Config
	selector *policy.Selector
	registry *tooldesk.Registry
	composer *prompt.Composer
	// orch is nil for commands that do not talk to the model.
	orch *conversation.Orchestrator
}

// newApp loads configuration and wires the registry, the prompt composer and, when withModel
// is set, the orchestrator on top of the completion service.
func (c *cli) newApp(cmd *cobra.Command, withModel bool) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.EnvFile != "" {
		c.logger.Debug().Str("file", cfg.EnvFile).Msg("loaded env file")
	}

	selector := policy.Default()
	if cfg.PoliciesFile != "" {
		if selector, err = policy.LoadFile(cfg.PoliciesFile); err != nil {
			return nil, err
		}
	}

	registry, err := newRegistry(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	composer, err := prompt.NewComposer()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, selector: selector, registry: registry, composer: composer}
	if !withModel {
		return a, nil
	}

	completer := c.completer
	if completer == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		logger := c.logger.With().Str("component", "openai").Logger()
		completer = openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  &logger,
		})
	}
	a.orch = conversation.New(registry, composer, completer,
		conversation.WithLogger(c.logger),
		conversation.WithCompletionTimeout(cfg.CompletionTimeout),
	)
	return a, nil
}

// newRegistry registers every built-in tool. Each HTTP-backed tool gets its own rate limiter.
func newRegistry(cfg *config.Config, logger zerolog.Logger) (*tooldesk.Registry, error) {
	reg := tooldesk.NewRegistry(
		tooldesk.WithDefaultTimeout(cfg.ToolTimeout),
		tooldesk.WithMaxConcurrency(cfg.MaxConcurrency),
		tooldesk.WithOnAfterExecute(func(_ context.Context, call tooldesk.ToolCall, res tooldesk.ToolResult) {
			if res.Error != nil {
				logger.Warn().Err(res.Error).Str("tool", call.ToolName).Str("call_id", call.ID).Msg("tool call failed")
			}
		}),
	)
	reg.Use(tooldesk.WithLogging(logger))

	limit := rate.Limit(cfg.HTTPRateLimit)
	specs := append(convert.Tools(),
		currency.NewClient(
			currency.WithBaseURL(cfg.ExchangeRateBaseURL),
			currency.WithAPIKey(cfg.ExchangeRateAPIKey),
			currency.WithRateLimiter(rate.NewLimiter(limit, 1)),
		).Tool(),
		weather.NewClient(
			weather.WithBaseURL(cfg.OpenWeatherMapBaseURL),
			weather.WithAPIKey(cfg.OpenWeatherMapAPIKey),
			weather.WithRateLimiter(rate.NewLimiter(limit, 1)),
			weather.WithLogger(logger),
		).Tool(),
	)
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// variant resolves --policy, or asks when it is empty.
func (a *app) variant(id string, ask func(*policy.Selector) (policy.Variant, error)) (policy.Variant, error) {
	if id != "" {
		return a.selector.Lookup(id)
	}
	return ask(a.selector)
}
