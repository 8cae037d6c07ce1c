package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const cacheCleanupInterval = 15 * time.Minute

// NewAppContext は設定から全ての依存関係を組み立てます。
// API キーが無い場合も起動でき、生成時に capability unavailable として扱われます。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("生成設定が不正です: %w", err)
	}

	reader, writer := initializeRemoteIO(ctx)
	references := InitializeReferenceLoader(cfg, reader)

	client, err := generator.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel)
	if err != nil {
		return nil, err
	}

	st := store.New(settings)
	orch, err := workflow.New(workflow.Args{
		Config: workflow.Config{
			EnhanceModel: cfg.GeminiModel,
			RateInterval: cfg.RateInterval,
			RateBurst:    workflow.DefaultRateBurst,
		},
		Store:  st,
		Client: client,
	})
	if err != nil {
		return nil, fmt.Errorf("オーケストレーターの初期化に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "アプリケーションを初期化しました",
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"style", settings.Style.ID,
		"aspect_ratio", settings.Aspect.ID,
		"available", client.IsAvailable())

	return &AppContext{
		Config:       cfg,
		Store:        st,
		Orchestrator: orch,
		References:   references,
		Reader:       reader,
		Writer:       writer,
	}, nil
}

// InitializeReferenceLoader は HTTP クライアントとキャッシュを備えた参照画像ローダーを構築します。
func InitializeReferenceLoader(cfg *config.Config, reader remoteio.InputReader) *generator.ReferenceLoader {
	httpClient := httpkit.New(cfg.HTTPTimeout)
	refCache := cache.New(cfg.ReferenceCacheTTL, cacheCleanupInterval)

	var input generator.InputReader
	if reader != nil {
		input = reader
	}
	return generator.NewReferenceLoader(httpClient, input, refCache, cfg.ReferenceCacheTTL)
}

// initializeRemoteIO はローカル/GCS 両対応のリーダーとライターを取得します。
// 取得に失敗した場合は警告を出し、該当機能を nil のまま返します。
func initializeRemoteIO(ctx context.Context) (remoteio.InputReader, remoteio.OutputWriter) {
	factory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		slog.WarnContext(ctx, "GCSクライアントファクトリの初期化に失敗しました。ファイル入出力が制限されます", "error", err)
		return nil, nil
	}

	var reader remoteio.InputReader
	if r, err := factory.NewInputReader(); err != nil {
		slog.WarnContext(ctx, "InputReaderの取得に失敗しました", "error", err)
	} else {
		reader = r
	}

	var writer remoteio.OutputWriter
	if w, err := factory.NewOutputWriter(); err != nil {
		slog.WarnContext(ctx, "OutputWriterの取得に失敗しました。保存機能が制限される可能性があります", "error", err)
	} else {
		writer = w
	}
	return reader, writer
}
