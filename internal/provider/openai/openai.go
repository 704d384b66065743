// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package openai implements the provider contract over the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"encoding/json"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.Provider using the OpenAI Chat Completions API.
type Provider struct {
	client openaisdk.Client
	config Config
}

// New creates a new OpenAI provider. Returns an error if the API key is
// missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, tethererr.New(
			tethererr.CodeProviderRequestInvalid,
			"openai: missing api_key in config",
			tethererr.FieldProvider("openai"),
		)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openaisdk.NewClient(opts...)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Available(_ context.Context) bool { return true }

func (p *Provider) Close() error { return nil }

// Complete sends one blocking completion request and returns the full
// response.
func (p *Provider) Complete(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderRequestInvalid, "openai: building request params")
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderUpstreamFailure, "openai: completion request")
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

// buildParams converts a provider.ChatRequest into OpenAI SDK
// ChatCompletionNewParams.
func buildParams(req provider.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}

	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}

	if req.Options.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*req.Options.Temperature))
	}

	if len(req.Tools) > 0 && !req.Options.DisableTools {
		params.Tools = convertTools(req.Tools)
	}

	return params, nil
}

// convertMessages transforms provider messages into OpenAI SDK message
// params. Assistant messages carry their tool calls so tool-role results can
// be threaded back to them.
func convertMessages(msgs []provider.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	var result []openaisdk.ChatCompletionMessageParamUnion

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))

		case provider.MessageRoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))

		case provider.MessageRoleTool:
			result = append(result, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))

		case provider.MessageRoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openaisdk.AssistantMessage(msg.Content))
				continue
			}
			assistant, err := assistantWithToolCalls(msg)
			if err != nil {
				return nil, err
			}
			result = append(result, assistant)

		default:
			return nil, tethererr.Errorf(
				tethererr.CodeProviderRequestInvalid,
				"openai: unsupported message role %q", msg.Role,
			)
		}
	}

	return result, nil
}

// assistantWithToolCalls rebuilds an assistant turn that requested tools.
func assistantWithToolCalls(msg provider.Message) (openaisdk.ChatCompletionMessageParamUnion, error) {
	toolCalls := make([]openaisdk.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			return openaisdk.ChatCompletionMessageParamUnion{}, tethererr.Wrapf(
				err, tethererr.CodeProviderRequestInvalid,
				"openai: marshalling tool call arguments for %q", tc.Name,
			)
		}
		toolCalls = append(toolCalls, openaisdk.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}

	assistant := openaisdk.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if msg.Content != "" {
		assistant.Content = openaisdk.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(msg.Content),
		}
	}

	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}

// convertTools transforms tool definitions into OpenAI SDK tool params.
func convertTools(tools []provider.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.InputSchema),
			},
		})
	}
	return result
}

// convertResponse flattens the first choice into a provider.ChatResponse.
func convertResponse(resp *openaisdk.ChatCompletion) (*provider.ChatResponse, error) {
	out := &provider.ChatResponse{
		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}

	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0].Message
	out.Content = choice.Content

	for _, tc := range choice.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, tethererr.Wrapf(err, tethererr.CodeProviderResponseInvalid,
					"openai: unmarshalling tool call arguments for %q", tc.Function.Name)
			}
		}
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return out, nil
}
