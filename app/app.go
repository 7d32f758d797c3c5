// Package app wires configuration into a ready estimation engine and session
// manager. It is shared by the example binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/tbxark/estimagent/agent"
	"github.com/tbxark/estimagent/config"
	"github.com/tbxark/estimagent/dialogue"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/intent"
	"github.com/tbxark/estimagent/types"
)

// NewLogger returns a text logger at debug level in development and a JSON
// logger at info level everywhere else.
func NewLogger(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// NewChatModel builds the OpenAI-compatible model, or returns nil when no API
// key is configured.
func NewChatModel(ctx context.Context, cfg config.OpenAIConfig) (model.ToolCallingChatModel, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return cm, nil
}

// EngineOptions turns cfg into engine options. With a chat model every
// collaborator is model-backed and falls back to its local counterpart.
func EngineOptions(cfg *config.Config, chatModel model.ToolCallingChatModel, recorder agent.Recorder, logger *slog.Logger) ([]agent.Option, error) {
	opts := []agent.Option{
		agent.WithProfiles(cfg.Catalog()),
		agent.WithDefaultService(cfg.DefaultService),
		agent.WithExtractionTimeout(cfg.ExtractionTimeout),
		agent.WithHistoryWindow(cfg.HistoryWindow),
		agent.WithRecorder(recorder),
		agent.WithLogger(logger),
	}
	if chatModel == nil {
		return opts, nil
	}

	extractor, err := extract.NewToolBasedExtractor(chatModel)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	analyzer, err := extract.NewToolBasedImageAnalyzer(chatModel)
	if err != nil {
		return nil, fmt.Errorf("init image analyzer: %w", err)
	}
	recognizer, err := intent.NewToolBasedRecognizer(chatModel)
	if err != nil {
		return nil, fmt.Errorf("init intent recognizer: %w", err)
	}
	recognizers := intent.NewFailbackRecognizer(recognizer, intent.NewLocalRecognizer())

	return append(opts,
		agent.WithExtractor(extract.NewFailbackExtractor(extractor, extract.NewLocalExtractor())),
		agent.WithImageAnalyzer(extract.NewFailbackImageAnalyzer(analyzer, extract.NewDescriptionImageAnalyzer())),
		agent.WithSelector(dialogue.NewFailbackSelector(
			dialogue.NewToolBasedSelector(chatModel),
			dialogue.NewLocalSelector(recognizers),
		)),
	), nil
}

// NewSessions builds the engine and a session manager over Redis when a URL is
// configured, or over process memory otherwise.
func NewSessions(ctx context.Context, cfg *config.Config, recorder agent.Recorder, logger *slog.Logger) (*agent.Sessions, error) {
	chatModel, err := NewChatModel(ctx, cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	opts, err := EngineOptions(cfg, chatModel, recorder, logger)
	if err != nil {
		return nil, err
	}
	engine := agent.NewEngine(opts...)

	if cfg.RedisURL == "" {
		logger.Info("Using in-memory session store", "ttl", cfg.SessionTTL)
		return agent.NewSessions(engine, agent.NewExpiringMemoryCache[*types.ConversationState](cfg.SessionTTL)), nil
	}
	cache, err := agent.NewRedisCacheFromURL[*types.ConversationState](cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := cache.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("Using redis session store", "ttl", cfg.SessionTTL)
	return agent.NewSessions(engine, cache), nil
}
