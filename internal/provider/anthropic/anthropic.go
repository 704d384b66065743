// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package anthropic implements the provider contract over the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

const defaultMaxTokens = 4096

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	config Config
}

// New creates a new Anthropic provider. Returns an error if the API key is
// missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, tethererr.New(
			tethererr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config",
			tethererr.FieldProvider("anthropic"),
		)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropicsdk.NewClient(opts...)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Available(_ context.Context) bool { return true }

func (p *Provider) Close() error { return nil }

// Complete sends one blocking completion request and returns the full
// response.
func (p *Provider) Complete(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderRequestInvalid, "anthropic: building request params")
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderUpstreamFailure, "anthropic: completion request")
	}

	return convertResponse(resp)
}

// ParseToolCalls extracts tool calls from a completed response.
func (p *Provider) ParseToolCalls(resp *provider.ChatResponse) []provider.ToolCall {
	if resp == nil {
		return nil
	}
	return resp.ToolCalls
}

// buildParams converts a provider.ChatRequest into Anthropic SDK
// MessageNewParams.
func buildParams(req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	msgs, system, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}

	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: system},
		}
	}

	if req.Options.Temperature != nil {
		params.Temperature = anthropicsdk.Float(float64(*req.Options.Temperature))
	}

	if len(req.Tools) > 0 && !req.Options.DisableTools {
		params.Tools = convertTools(req.Tools)
	}

	return params, nil
}

// convertMessages transforms provider messages into Anthropic SDK message
// params. System messages are folded into the top-level system prompt, which
// is how the Messages API expects them.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, string, error) {
	var result []anthropicsdk.MessageParam
	var system string

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))

		case provider.MessageRoleAssistant:
			blocks := assistantBlocks(msg)
			if len(blocks) == 0 {
				continue
			}
			result = append(result, anthropicsdk.MessageParam{
				Role:    anthropicsdk.MessageParamRoleAssistant,
				Content: blocks,
			})

		case provider.MessageRoleTool:
			result = append(result, anthropicsdk.NewUserMessage(
				anthropicsdk.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))

		case provider.MessageRoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		default:
			return nil, "", tethererr.Errorf(
				tethererr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", msg.Role,
			)
		}
	}

	return result, system, nil
}

// assistantBlocks renders an assistant history message, including any tool
// use blocks the model produced, so results can be threaded back.
func assistantBlocks(msg provider.Message) []anthropicsdk.ContentBlockParamUnion {
	var blocks []anthropicsdk.ContentBlockParamUnion

	if msg.Content != "" {
		blocks = append(blocks, anthropicsdk.ContentBlockParamUnion{
			OfText: &anthropicsdk.TextBlockParam{Text: msg.Content},
		})
	}

	for _, tc := range msg.ToolCalls {
		// Input is any-typed; the argument map must go through as-is so it
		// serializes as a JSON object, not a base64 byte string.
		blocks = append(blocks, anthropicsdk.ContentBlockParamUnion{
			OfToolUse: &anthropicsdk.ToolUseBlockParam{
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.Arguments,
			},
		})
	}

	return blocks
}

// convertTools transforms tool definitions into Anthropic SDK tool params.
func convertTools(tools []provider.ToolDefinition) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.Opt(t.Description),
				InputSchema: extractSchema(t.InputSchema),
			},
		})
	}
	return result
}

// extractSchema maps a full JSON Schema object (keys "type", "properties",
// "required") into the SDK's ToolInputSchemaParam, which wants Properties and
// Required as separate fields.
func extractSchema(raw map[string]any) anthropicsdk.ToolInputSchemaParam {
	schema := anthropicsdk.ToolInputSchemaParam{}
	if props, ok := raw["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := raw["required"]; ok {
		if arr, ok := req.([]any); ok {
			strs := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					strs = append(strs, s)
				}
			}
			schema.Required = strs
		}
	}
	return schema
}

// convertResponse flattens the SDK message into a provider.ChatResponse,
// concatenating text blocks and collecting tool use blocks in order.
func convertResponse(resp *anthropicsdk.Message) (*provider.ChatResponse, error) {
	out := &provider.ChatResponse{
		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			out.Content += b.Text
		case anthropicsdk.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(b.Input, &args); err != nil {
				return nil, tethererr.Wrapf(err, tethererr.CodeProviderResponseInvalid,
					"anthropic: unmarshalling tool call input for %q", b.Name)
			}
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}

	return out, nil
}
