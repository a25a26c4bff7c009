package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/candidates"
	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/notify"
	"github.com/spigell/cv-ranker/internal/secrets"
	"github.com/spigell/cv-ranker/internal/session"
)

// bootstrap builds the logger, loads every resume and returns a ready session.
// Any failure here is fatal for the calling command.
func bootstrap(ctx context.Context) (*Config, *session.Session, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-ranker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	embedder, err := newEmbedder(config.Embedder, logger)
	if err != nil {
		logger.Fatal("configuring the embedder", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or embedder.gemini.api-key-file for the gemini provider"),
		)
	}

	emails, err := candidates.LoadEmailMapping(config.Resumes.ResponsesFile)
	if err != nil {
		logger.Fatal("loading email mapping", zap.Error(err))
	}

	store, err := candidates.Initialize(ctx, candidates.Options{
		Source:    candidates.NewFolderSource(config.Resumes.Folder),
		Extractor: candidates.FileExtractor{},
		Emails:    emails,
		Embedder:  embedder,
		Workers:   config.Resumes.Workers,
		OnError:   config.Resumes.OnError,
		Logger:    logger.Named("candidates"),
	})
	if err != nil {
		logger.Fatal("loading resumes", zap.Error(err),
			zap.String("hint", "set RESUME_FOLDER or resumes.folder; use resumes.on-error=skip to ignore broken files"),
		)
	}

	notifier, err := newNotifier(config, logger)
	if err != nil {
		logger.Fatal("configuring notifications", zap.Error(err))
	}

	sess, err := session.New(session.Options{
		Store:    store,
		Embedder: embedder,
		Notifier: notifier,
		Weights:  config.Weights,
		TopK:     config.Notify.TopK,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("creating the ranking session", zap.Error(err))
	}

	return config, sess, logger
}

func newEmbedder(cfg *EmbedderConfig, log *zap.Logger) (*embedding.Lazy, error) {
	embCfg := embedding.Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		URL:        cfg.Ollama.URL,
	}

	if embCfg.ProviderName() == embedding.ProviderGemini {
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			Env:  "GEMINI_API_KEY",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, err
		}
		embCfg.APIKey = apiKey
	}

	embLogger := logger.WithEmbedder(log.Named("embedding"), embCfg.ProviderName(), cfg.Model)
	loader, err := embedding.NewLoader(embCfg, embLogger)
	if err != nil {
		return nil, err
	}
	return embedding.NewLazy(loader, embLogger), nil
}

// newNotifier returns nil when neither SMTP nor dry-run delivery is configured.
func newNotifier(cfg *Config, log *zap.Logger) (*notify.Notifier, error) {
	if cfg.Notify.DryRun {
		return notify.NewNotifier(notify.NewDryRunSender(log.Named("notify")), log)
	}

	if cfg.SMTP.Host == "" {
		log.Warn("smtp is not configured, sending emails is disabled",
			zap.String("hint", "set SMTP_HOST or smtp.host, or enable notify.dry-run"),
		)
		return nil, nil
	}

	password, err := secrets.Optional(secrets.Source{
		Name: "smtp password",
		Env:  "SMTP_PASS",
		File: cfg.SMTP.PasswordFile,
	})
	if err != nil {
		return nil, err
	}

	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewNotifier(sender, log)
}
