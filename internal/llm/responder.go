// Package llm produces the companion's replies for the dev backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"moodmate/internal/config"
	"moodmate/internal/model"
	"moodmate/pkg/logger"
)

var (
	ErrUnknownProvider = errors.New("unknown responder provider")
	ErrMissingAPIKey   = errors.New("responder api key is not configured")
	ErrEmptyReply      = errors.New("model returned an empty reply")
)

// Responder answers the last user message given the whole conversation.
type Responder interface {
	Reply(ctx context.Context, history []model.ChatMessage) (string, error)
}

// New picks the provider named in cfg.Provider.
func New(ctx context.Context, cfg config.ResponderConfig) (Responder, error) {
	var (
		chatModel einoModel.ChatModel
		err       error
	)

	switch cfg.Provider {
	case "", "canned":
		return NewCanned(), nil
	case "openai":
		chatModel, err = newOpenAIChatModel(cfg.OpenAI)
	case "ark":
		chatModel, err = newArkChatModel(ctx, cfg.Ark)
	case "qwen":
		chatModel, err = newQwenChatModel(ctx, cfg.Qwen)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	r, err := NewChatResponder(ctx, chatModel, cfg.SystemPrompt, cfg.MaxHistory)
	if err != nil {
		return nil, err
	}
	logger.Infof("Responder provider: %s", cfg.Provider)
	return r, nil
}

// ChatResponder runs a prompt template and an eino chat model as one chain:
// system prompt, the recent history, then the newest user turn.
type ChatResponder struct {
	chain      compose.Runnable[map[string]any, *schema.Message]
	maxHistory int
}

func NewChatResponder(ctx context.Context, m einoModel.ChatModel, systemPrompt string, maxHistory int) (*ChatResponder, error) {
	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(newReplyPrompt(systemPrompt)).
		AppendChatModel(m).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile reply chain: %w", err)
	}
	return &ChatResponder{chain: chain, maxHistory: maxHistory}, nil
}

func newReplyPrompt(systemPrompt string) prompt.ChatTemplate {
	templates := make([]schema.MessagesTemplate, 0, 3)
	if systemPrompt != "" {
		templates = append(templates, schema.SystemMessage(systemPrompt))
	}
	templates = append(templates,
		schema.MessagesPlaceholder("message_histories", true),
		schema.UserMessage("{user_query}"),
	)
	return prompt.FromMessages(schema.FString, templates...)
}

func (r *ChatResponder) Reply(ctx context.Context, history []model.ChatMessage) (string, error) {
	msg, err := r.chain.Invoke(ctx, r.buildInput(history), compose.WithCallbacks(logCallback()))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

// buildInput keeps the last maxHistory messages. The newest one is the user
// query; everything before it fills the history placeholder.
func (r *ChatResponder) buildInput(history []model.ChatMessage) map[string]any {
	if r.maxHistory > 0 && len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}

	query := ""
	if n := len(history); n > 0 && history[n-1].Role == model.RoleUser {
		query = history[n-1].Content
		history = history[:n-1]
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		role := schema.User
		if m.Role == model.RoleAssistant {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: m.Content})
	}
	return map[string]any{
		"user_query":        query,
		"message_histories": messages,
	}
}

func logCallback() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logger.WithFields(logrus.Fields{
				"node":      info.Name,
				"component": info.Component,
			}).Warnf("reply chain failed: %v", err)
			return ctx
		}).
		Build()
}
