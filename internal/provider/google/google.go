// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package google implements the provider contract over the Google Gemini
// API.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey string
}

// Provider implements provider.Provider using the Google Gemini API.
type Provider struct {
	client *genai.Client
	config Config
}

// New creates a new Google provider. Returns an error if the API key is
// missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, tethererr.New(
			tethererr.CodeProviderRequestInvalid,
			"google: missing api_key in config",
			tethererr.FieldProvider("google"),
		)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Available(_ context.Context) bool { return true }

func (p *Provider) Close() error { return nil }

// Complete sends one blocking completion request and returns the full
// response.
func (p *Provider) Complete(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	contents, system, err := convertMessages(req.Messages)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderRequestInvalid, "google: converting messages")
	}

	config := buildConfig(req, system)

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, tethererr.Wrapf(err, tethererr.CodeProviderUpstreamFailure, "google: completion request")
	}

	return convertResponse(resp), nil
}

// ParseToolCalls extracts tool calls from a completed response.
func (p *Provider) ParseToolCalls(resp *provider.ChatResponse) []provider.ToolCall {
	if resp == nil {
		return nil
	}
	return resp.ToolCalls
}

// buildConfig converts request options into a genai.GenerateContentConfig.
func buildConfig(req provider.ChatRequest, system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.Options.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Options.Temperature)
	}

	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}

	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: system},
			},
		}
	}

	if len(req.Tools) > 0 && !req.Options.DisableTools {
		cfg.Tools = convertTools(req.Tools)
	}

	return cfg
}

// convertMessages transforms provider messages into genai.Content slices.
// System messages are collected into the system instruction; tool results
// become function responses on a user turn, which is how Gemini threads
// them.
func convertMessages(msgs []provider.Message) ([]*genai.Content, string, error) {
	var result []*genai.Content
	var system string

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{
					{Text: msg.Content},
				},
			})

		case provider.MessageRoleAssistant:
			parts := assistantParts(msg)
			if len(parts) == 0 {
				continue
			}
			result = append(result, &genai.Content{
				Role:  "model",
				Parts: parts,
			})

		case provider.MessageRoleTool:
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{
					{
						FunctionResponse: &genai.FunctionResponse{
							ID:       msg.ToolCallID,
							Name:     msg.ToolName,
							Response: map[string]any{"result": msg.Content},
						},
					},
				},
			})

		case provider.MessageRoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		default:
			return nil, "", tethererr.Errorf(
				tethererr.CodeProviderRequestInvalid,
				"google: unsupported message role %q", msg.Role,
			)
		}
	}

	return result, system, nil
}

// assistantParts renders an assistant history turn, including the function
// calls the model made.
func assistantParts(msg provider.Message) []*genai.Part {
	var parts []*genai.Part

	if msg.Content != "" {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}

	for _, tc := range msg.ToolCalls {
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Name,
				Args: tc.Arguments,
			},
		})
	}

	return parts
}

// convertTools transforms tool definitions into genai.Tool slices.
func convertTools(tools []provider.ToolDefinition) []*genai.Tool {
	var decls []*genai.FunctionDeclaration
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.InputSchema,
		})
	}
	return []*genai.Tool{
		{FunctionDeclarations: decls},
	}
}

// convertResponse flattens the first candidate into a provider.ChatResponse.
func convertResponse(resp *genai.GenerateContentResponse) *provider.ChatResponse {
	out := &provider.ChatResponse{}

	if resp.UsageMetadata != nil {
		out.Usage = &provider.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
			if part.FunctionCall != nil {
				out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
					ID:        part.FunctionCall.ID,
					Name:      part.FunctionCall.Name,
					Arguments: part.FunctionCall.Args,
				})
			}
		}
	}

	return out
}
