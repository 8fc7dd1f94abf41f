// Package anthropic implements model.Generator on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcbrain/internal/model"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "claude-3-5-haiku-latest"

// ErrMissingAPIKey is returned by New when no API key is supplied.
var ErrMissingAPIKey = errors.New("anthropic: api key is required")

// Options configures a Generator.
type Options struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// Generator calls the Messages API once per request. The SDK's own retries
// are disabled; the caller's context bounds each call.
type Generator struct {
	client sdk.Client
	model  string
	logger *zap.Logger
}

// New builds a Generator.
//
// Precondition: opts.APIKey is non-empty.
// Postcondition: Returns a ready Generator or ErrMissingAPIKey.
func New(opts Options, logger *zap.Logger) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	name := opts.Model
	if name == "" {
		name = DefaultModel
	}
	return &Generator{
		client: sdk.NewClient(reqOpts...),
		model:  name,
		logger: logger,
	}, nil
}

// Generate implements model.Generator.
func (g *Generator) Generate(ctx context.Context, req model.Request) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("anthropic: %w", ctxErr)
		}
		return "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		g.logger.Debug("anthropic: empty completion", zap.String("stop_reason", string(msg.StopReason)))
		return "", model.ErrNoResponse
	}
	return text, nil
}
