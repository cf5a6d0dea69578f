package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/msto63/englishquery/internal/history"
	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/orchestrator"
	"github.com/msto63/englishquery/internal/speech"
	"github.com/msto63/englishquery/internal/speech/stt"
	"github.com/msto63/englishquery/internal/translator"
	"github.com/msto63/englishquery/pkg/core/config"
	"github.com/msto63/englishquery/pkg/core/logging"
)

// transcriptionKeyEnv holds the key for the speech-to-text service
const transcriptionKeyEnv = "OPENAI_API_KEY"

func connectionConfig(cfg *config.Config) mariadb.ConnectionConfig {
	c := mariadb.DefaultConnectionConfig()
	c.Host = cfg.Database.Host
	c.Port = cfg.Database.Port
	c.User = cfg.Database.User
	c.Password = cfg.Database.Password
	c.Database = cfg.Database.Name
	if cfg.Database.Charset != "" {
		c.Charset = cfg.Database.Charset
	}
	c.Autocommit = !cfg.Database.ManualCommit
	c.ReconnectAttempts = cfg.Database.ReconnectAttempts
	c.ReconnectDelay = cfg.Database.ReconnectDelay.Duration
	c.ConnectTimeout = cfg.Database.ConnectTimeout.Duration
	return c
}

// translatorStack owns the translator and the resources behind it
type translatorStack struct {
	translator translator.Translator
	history    history.Store
	cancel     context.CancelFunc
}

func (s *translatorStack) Close() error {
	s.cancel()
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

func buildTranslator(ctx context.Context, cfg *config.Config, apiKey string) (*translatorStack, error) {
	logger := logging.New("equery")
	ctx, cancel := context.WithCancel(ctx)

	prompts, err := translator.LoadPromptBook(cfg.Translator.PromptFile)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	if cfg.Translator.WatchPrompts && cfg.Translator.PromptFile != "" {
		if err := prompts.StartWatching(ctx); err != nil {
			logger.Warn("Prompt file watching disabled", "error", err)
		}
	}

	opts := translator.Options{
		Provider:        cfg.Translator.Provider,
		Model:           cfg.Translator.Model,
		ReasoningEffort: cfg.Translator.ReasoningEffort,
		Temperature:     cfg.Translator.Temperature,
		BaseURL:         cfg.Translator.BaseURL,
		APIKey:          apiKey,
		Timeout:         cfg.Translator.Timeout.Duration,
		Prompts:         prompts,
		PromptName:      cfg.Translator.PromptName,
		Conversation:    cfg.Translator.Conversation,
		HistoryLimit:    cfg.Translator.HistoryLimit,
	}

	stack := &translatorStack{cancel: cancel}
	if cfg.Translator.HistoryLimit > 0 {
		store, err := history.OpenSQLite(cfg.Translator.HistoryFile)
		if err != nil {
			logger.Warn("Conversation history unavailable, keeping it in memory", "error", err)
			stack.history = history.NewMemoryStore()
		} else {
			stack.history = store
		}
		if cfg.Translator.ResetHistory {
			if err := stack.history.Reset(ctx, cfg.Translator.Conversation); err != nil {
				logger.Warn("Failed to reset conversation history", "error", err)
			}
		}
		opts.History = stack.history
	}

	tr, err := translator.New(ctx, opts)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	stack.translator = tr
	return stack, nil
}

func buildSession(ctx context.Context, cfg *config.Config, tr translator.Translator, conn *mariadb.Connection) *orchestrator.Session {
	logger := logging.New("session")
	var opts []orchestrator.Option
	opts = append(opts, orchestrator.WithLogger(logger))
	if cfg.Translator.ReadOnly {
		opts = append(opts, orchestrator.WithGuard(orchestrator.ReadOnlyGuard{}))
	}
	session := orchestrator.New(tr, conn, opts...)
	if cfg.Translator.IncludeSchema {
		if err := session.LoadSchema(ctx, conn); err != nil {
			logger.Warn("Schema not loaded, translating without it", "error", err)
		}
	}
	return session
}

// buildListener returns nil when no transcription key is available
func buildListener(cfg *config.Config) (*speech.Listener, error) {
	key := strings.TrimSpace(os.Getenv(transcriptionKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%s environment variable not set", transcriptionKeyEnv)
	}

	settings, err := speech.LoadSettings(cfg.Listener.SettingsFile)
	if err != nil {
		logging.New("equery").Warn("Using default listener settings", "error", err)
	}

	transcriber := stt.NewOpenAI(stt.Config{
		APIKey:   key,
		BaseURL:  cfg.Listener.TranscriptionURL,
		Model:    cfg.Listener.TranscriptionModel,
		Language: cfg.Listener.Language,
	})

	return speech.New(settings, transcriber,
		speech.WithSourceFactory(speech.MicrophoneSource(cfg.Listener.SampleRate)),
		speech.WithDetectorFactory(speech.WebRTCDetector(cfg.Listener.VADMode)),
		speech.WithRequestTimeout(cfg.Listener.RequestTimeout.Duration),
		speech.WithStopTimeout(cfg.Listener.StopTimeout.Duration),
		speech.WithLogger(logging.New("listener")),
	), nil
}
