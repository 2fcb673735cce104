package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var defaultChatModels = map[string]string{
	"gemini": "gemini-2.0-flash",
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
}

type ChatConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Tools    []tool.BaseTool
}

type chatBuilder func(ctx context.Context, cfg ChatConfig) (model.ToolCallingChatModel, error)

type chatRunner func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error)

// ChatModel is a TextModel backed by an eino chat model. The provider client
// is built on first use so a missing credential only fails the call that needs it.
type ChatModel struct {
	cfg   ChatConfig
	build chatBuilder

	mu  sync.Mutex
	run chatRunner
}

func NewChatModel(cfg ChatConfig) (*ChatModel, error) {
	def, ok := defaultChatModels[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = def
	}
	return &ChatModel{cfg: cfg, build: buildChatModel}, nil
}

func (m *ChatModel) Generate(ctx context.Context, prompt string) (string, error) {
	run, err := m.runner(ctx)
	if err != nil {
		return "", err
	}
	msg, err := run(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("generate %s answer: %w", m.cfg.Provider, err)
	}
	if msg == nil {
		return "", errors.New("chat model returned no message")
	}
	return msg.Content, nil
}

func (m *ChatModel) runner(ctx context.Context) (chatRunner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run != nil {
		return m.run, nil
	}

	chatModel, err := m.build(ctx, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", m.cfg.Provider, err)
	}
	if len(m.cfg.Tools) == 0 {
		m.run = func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
			return chatModel.Generate(ctx, msgs)
		}
		return m.run, nil
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: m.cfg.Tools,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init react agent: %w", err)
	}
	m.run = func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
		return reactAgent.Generate(ctx, msgs)
	}
	return m.run, nil
}

func buildChatModel(ctx context.Context, cfg ChatConfig) (model.ToolCallingChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("new gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if cfg.BaseURL != "" {
			baseURLPtr = &cfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	}
	return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
}
