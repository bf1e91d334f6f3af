package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/sashabaranov/go-openai"
)

// Prompt is one system + user message pair sent to the generative service
type Prompt struct {
	System string
	User   string
}

// TextStream yields incremental text chunks. Recv returns io.EOF once the upstream finished.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// Generator is the upstream text completion service
type Generator interface {
	// Configured reports whether the generator has credentials
	Configured() bool
	Stream(ctx context.Context, prompt Prompt) (TextStream, error)
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator creates a generator from the llm config.
// Without an API key the generator exists but reports itself unconfigured.
func NewOpenAIGenerator(cfg config.LLMConfig) *OpenAIGenerator {
	g := &OpenAIGenerator{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return g
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	g.client = openai.NewClientWithConfig(clientCfg)
	return g
}

func (g *OpenAIGenerator) Configured() bool {
	return g != nil && g.client != nil
}

// Stream opens a streaming chat completion. Cancelling ctx aborts the upstream request.
func (g *OpenAIGenerator) Stream(ctx context.Context, prompt Prompt) (TextStream, error) {
	if !g.Configured() {
		return nil, domain.ErrAINotConfigured
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(prompt, true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return &openaiStream{stream: stream}, nil
}

// Complete runs a non-streaming chat completion and returns the reply text
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !g.Configured() {
		return "", domain.ErrAINotConfigured
	}

	resp, err := g.client.CreateChatCompletion(ctx, g.request(prompt, false))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) request(prompt Prompt, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Stream:      stream,
	}
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips role-only and empty deltas so callers only see text
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
