// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"indialaw-go/internal/config"
	"indialaw-go/pkg/metrics"

	openai "github.com/sashabaranov/go-openai"
)

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature float32
	MaxTokens   int
}

// FromConfig 将配置段转换为生成参数。
func FromConfig(cfg config.GenerationConfig) GenerationParams {
	return GenerationParams{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
}

// ChunkHandler 接收流式输出的每个文本片段，返回错误会中止流。
type ChunkHandler func(chunk string) error

// Client defines the interface for an LLM client.
type Client interface {
	// Generate 以非流式方式返回完整回复。
	Generate(ctx context.Context, messages []Message, gen GenerationParams) (string, error)
	// StreamChatMessages 按模型产出顺序把片段交给 onChunk。
	StreamChatMessages(ctx context.Context, messages []Message, gen GenerationParams, onChunk ChunkHandler) error
}

type openAIClient struct {
	client *openai.Client
	model  string
}

// NewClient 创建 OpenAI 兼容接口的客户端，BaseURL 可指向任意兼容服务。
func NewClient(cfg config.LLMConfig) Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &openAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

func (c *openAIClient) buildRequest(messages []Message, gen GenerationParams, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
		Stream:      stream,
	}
}

func (c *openAIClient) Generate(ctx context.Context, messages []Message, gen GenerationParams) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, gen, false))
	metrics.LLMRequests.WithLabelValues("generate", metrics.Result(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) StreamChatMessages(ctx context.Context, messages []Message, gen GenerationParams, onChunk ChunkHandler) (err error) {
	defer func() {
		metrics.LLMRequests.WithLabelValues("stream", metrics.Result(err)).Inc()
	}()

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messages, gen, true))
	if err != nil {
		return fmt.Errorf("failed to open chat stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return fmt.Errorf("failed to read from stream: %w", recvErr)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		content := resp.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := onChunk(content); err != nil {
			return fmt.Errorf("failed to deliver chunk: %w", err)
		}
	}
}
