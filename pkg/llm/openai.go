package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider manages completions against an OpenAI-compatible chat endpoint
type OpenAIProvider struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIProvider creates an OpenAI-compatible provider
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm: openai API key is required")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	opts.applyDefaults(10 * time.Second)

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	config.HTTPClient = opts.HTTPClient

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		opts:   opts,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends the persona as a system message ahead of the user turn
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    p.buildMessages(prompt),
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	}

	response, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		fields := logrus.Fields{"provider": p.Name(), "model": p.opts.Model}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			fields["status"] = apiErr.HTTPStatusCode
			fields["code"] = apiErr.Code
		}
		p.opts.Logger.WithFields(fields).WithError(err).Error("Chat completion request failed")
		return "", transportError(p.Name(), err)
	}

	for _, choice := range response.Choices {
		if text := messageText(choice.Message); text != "" {
			p.opts.Logger.WithFields(logrus.Fields{
				"provider":     p.Name(),
				"finishReason": choice.FinishReason,
				"chars":        len(text),
			}).Debug("Chat completion received")
			return text, nil
		}
	}

	p.opts.Logger.WithFields(logrus.Fields{
		"provider": p.Name(),
		"choices":  len(response.Choices),
		"id":       response.ID,
	}).Error("No usable choice in chat completion response")
	return "", noContentError(p.Name(), errNoCandidates)
}

func (p *OpenAIProvider) buildMessages(prompt string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.opts.Persona != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.opts.Persona,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

// messageText returns the flat content, or the text parts of a multi-part message
func messageText(msg openai.ChatCompletionMessage) string {
	if text := strings.TrimSpace(msg.Content); text != "" {
		return text
	}
	parts := make([]replyPart, 0, len(msg.MultiContent))
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, replyPart{Text: part.Text})
		}
	}
	return joinParts(parts)
}
