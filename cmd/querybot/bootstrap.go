package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/querybot/internal/config"
	"github.com/randalmurphal/querybot/internal/intent"
	"github.com/randalmurphal/querybot/internal/responder"
	"github.com/randalmurphal/querybot/internal/retrieval"
	"github.com/randalmurphal/querybot/internal/workflow"
	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/querybot/pkg/flowgraph/llm"
	"github.com/randalmurphal/querybot/pkg/flowgraph/observability"
	"github.com/randalmurphal/querybot/pkg/flowgraph/retry"
)

// runtime holds the wired engine and everything that must be closed.
type runtime struct {
	engine  *workflow.Engine
	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (rt *runtime, err error) {
	rt = &runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	var metrics observability.MetricsRecorder = observability.NoopMetrics{}
	if cfg.Metrics {
		metrics = observability.NewMetricsRecorder()
	}

	var client *llm.OpenAIClient
	if cfg.OpenAI.APIKey != "" {
		opts := []llm.OpenAIOption{
			llm.WithModel(cfg.OpenAI.ChatModel),
			llm.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			llm.WithMaxTokens(cfg.OpenAI.MaxTokens),
			llm.WithTemperature(cfg.OpenAI.Temperature),
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		client = llm.NewOpenAIClient(cfg.OpenAI.APIKey, opts...)
	} else {
		logger.Warn("no OpenAI API key configured, running offline")
	}

	classifier, err := buildClassifier(cfg, client, logger, metrics)
	if err != nil {
		return nil, err
	}

	retriever, err := buildRetriever(ctx, cfg, client, logger, rt)
	if err != nil {
		return nil, err
	}

	var generator responder.Generator = responder.OfflineGenerator{}
	if client != nil {
		generator = responder.NewLLMGenerator(client,
			responder.WithRetry(retry.NewConfig(retry.WithMaxAttempts(cfg.Responder.MaxAttempts))),
			responder.WithLogger(logger),
		)
	}

	engineOpts := []workflow.Option{
		workflow.WithTopK(cfg.Retrieval.TopK),
		workflow.WithRetrieverTimeout(cfg.Retrieval.Timeout),
		workflow.WithGeneratorTimeout(cfg.Responder.Timeout),
		workflow.WithLogger(logger),
		workflow.WithMetrics(metrics),
		workflow.WithTracing(cfg.Tracing.Enabled),
	}
	store, err := openStore(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, err
	}
	if store != nil {
		rt.closers = append(rt.closers, store.Close)
		engineOpts = append(engineOpts, workflow.WithCheckpointStore(store))
	}

	rt.engine, err = workflow.New(classifier, retriever, generator, engineOpts...)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func buildClassifier(cfg *config.Config, client *llm.OpenAIClient, logger *slog.Logger, metrics observability.MetricsRecorder) (*intent.Classifier, error) {
	opts := []intent.Option{
		intent.WithLogger(logger),
		intent.WithMetrics(metrics),
		intent.WithModelTimeout(cfg.Classifier.ModelTimeout),
	}
	if cfg.Classifier.RulesFile != "" {
		rules, err := intent.LoadRules(cfg.Classifier.RulesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, intent.WithRules(rules))
	}

	var model intent.Model
	if client != nil {
		model = intent.NewLLMModel(client, cfg.Classifier.ModelTimeout)
	}
	return intent.New(model, opts...), nil
}

func buildRetriever(ctx context.Context, cfg *config.Config, client *llm.OpenAIClient, logger *slog.Logger, rt *runtime) (retrieval.Retriever, error) {
	switch cfg.Retrieval.Backend {
	case config.RetrievalQdrant:
		if client == nil {
			return nil, errors.New("qdrant retrieval needs an OpenAI API key for embeddings")
		}
		q := cfg.Retrieval.Qdrant
		r, err := retrieval.DialQdrant(q.Host, q.Port, q.APIKey, q.Collection, client,
			retrieval.WithRetry(retry.Default),
			retrieval.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, r.Close)
		if q.Seed {
			if err := r.Seed(ctx, retrieval.SampleDocuments()); err != nil {
				return nil, fmt.Errorf("seed qdrant: %w", err)
			}
		}
		return r, nil
	default:
		return retrieval.NewCatalogRetriever(retrieval.SampleDocuments()...), nil
	}
}

// openStore returns nil when checkpointing is off.
func openStore(ctx context.Context, cfg config.CheckpointConfig) (checkpoint.Store, error) {
	switch cfg.Backend {
	case config.CheckpointNone:
		return nil, nil
	case config.CheckpointSQLite:
		return checkpoint.NewSQLiteStore(cfg.SQLitePath)
	case config.CheckpointRedis:
		return checkpoint.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, checkpoint.RedisOptions{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	default:
		return checkpoint.NewMemoryStore(), nil
	}
}
