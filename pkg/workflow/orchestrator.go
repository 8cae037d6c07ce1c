package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/metrics"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrSceneNotFound は指定したシーンが存在しないことを示します。
var ErrSceneNotFound = errors.New("シーンが見つかりません")

// Orchestrator はシーンごとの2段階の生成（プロンプト拡張→画像生成）を実行し、結果をストアに書き戻します。
type Orchestrator struct {
	cfg      Config
	store    *store.Store
	client   generator.RemoteClient
	composer *prompts.Composer
	limiter  *rate.Limiter

	sceneGroup singleflight.Group
	batchMu    sync.Mutex
}

// Args は Orchestrator の構築に必要な依存関係です。
type Args struct {
	Config   Config
	Store    *store.Store
	Client   generator.RemoteClient
	Composer *prompts.Composer
}

// New は依存関係を検証して Orchestrator を初期化します。
func New(args Args) (*Orchestrator, error) {
	if args.Store == nil {
		return nil, fmt.Errorf("Store は必須です")
	}
	if args.Client == nil {
		return nil, fmt.Errorf("RemoteClient は必須です")
	}
	composer := args.Composer
	if composer == nil {
		var err error
		if composer, err = prompts.NewComposer(); err != nil {
			return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
		}
	}
	cfg := args.Config
	if cfg.EnhanceModel == "" {
		cfg.EnhanceModel = generator.DefaultEnhanceModel
	}

	return &Orchestrator{
		cfg:      cfg,
		store:    args.Store,
		client:   args.Client,
		composer: composer,
		limiter:  newLimiter(cfg),
	}, nil
}

func newLimiter(cfg Config) *rate.Limiter {
	if cfg.RateInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(cfg.RateInterval), burst)
}

// Store は Orchestrator が読み書きするストアを返します。
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// GenerateScene は1シーン分の生成を実行します。overridePrompt が空でなければ拡張を行わずにそれを使います。
// 外部呼び出しの失敗はシーンの Error に記録され、戻り値のエラーにはなりません。
// 戻り値のエラーはシーンが存在しない場合の ErrSceneNotFound のみです。
// 同じシーン・同じ Revision・同じ上書きプロンプトの呼び出しは進行中の生成に合流します。
func (o *Orchestrator) GenerateScene(ctx context.Context, sceneID, overridePrompt string) (domain.Scene, error) {
	key := o.flightKey(sceneID, overridePrompt)
	v, err, shared := o.sceneGroup.Do(key, func() (any, error) {
		return o.generateScene(ctx, sceneID, overridePrompt)
	})
	if shared {
		slog.DebugContext(ctx, "進行中の生成に合流しました", "scene_id", sceneID)
	}
	if err != nil {
		return domain.Scene{}, err
	}
	scene, ok := v.(domain.Scene)
	if !ok {
		return domain.Scene{}, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	return scene.Clone(), nil
}

// flightKey は合流判定のキーを返します。編集後の呼び出しは編集前の生成に合流しません。
func (o *Orchestrator) flightKey(sceneID, overridePrompt string) string {
	var revision uint64
	if scene, ok := o.store.Scene(sceneID); ok {
		revision = scene.Revision
	}
	return sceneID + "\x00" + strconv.FormatUint(revision, 10) + "\x00" + overridePrompt
}

func (o *Orchestrator) generateScene(ctx context.Context, sceneID, overridePrompt string) (domain.Scene, error) {
	scene, ok := o.store.Scene(sceneID)
	if !ok {
		return domain.Scene{}, ErrSceneNotFound
	}
	logger := slog.With("scene_id", sceneID, "panel", scene.PanelNumber)

	if !o.client.IsAvailable() {
		logger.WarnContext(ctx, "生成サービスが利用できないため中断します")
		metrics.RecordGeneration(metrics.OutcomeUnavailable)
		updated, _ := o.store.UpdateScene(sceneID, store.ScenePatch{
			Error:      ptr(domain.ErrCapabilityUnavailable.Error()),
			Generating: ptr(false),
		})
		return updated, nil
	}

	startTime := time.Now()
	settings := o.store.Settings()
	scene, ok = o.store.BeginGeneration(sceneID)
	if !ok {
		return domain.Scene{}, ErrSceneNotFound
	}
	at := stamp{revision: scene.Revision, attempt: scene.Attempt}

	prompt, settled, done := o.resolvePrompt(ctx, logger, scene, overridePrompt, at, settings)
	if done {
		return settled, nil
	}

	renderStart := time.Now()
	imageURL, err := o.client.RenderImage(ctx, prompt, settings.Aspect)
	if err != nil {
		metrics.ObserveRemoteCall("render", metrics.OutcomeFailure, renderStart)
		logger.ErrorContext(ctx, "画像生成に失敗しました", "error", err)
		return o.finish(ctx, logger, sceneID, at, store.ScenePatch{
			Error:      ptr(err.Error()),
			Generating: ptr(false),
		}, metrics.OutcomeFailure), nil
	}
	metrics.ObserveRemoteCall("render", metrics.OutcomeSuccess, renderStart)

	logger.InfoContext(ctx, "シーンの画像生成が完了しました",
		"elapsed", time.Since(startTime).Round(time.Millisecond))
	return o.finish(ctx, logger, sceneID, at, store.ScenePatch{
		ImageURL:   ptr(imageURL),
		Error:      ptr(""),
		Generating: ptr(false),
	}, metrics.OutcomeSuccess), nil
}

// resolvePrompt は使用するプロンプトを 上書き指定 → キャッシュ → 拡張 の順で決定します。
// 拡張に失敗した場合は基本プロンプトを FinalPrompt に残して生成を終了し、done=true を返します。
func (o *Orchestrator) resolvePrompt(
	ctx context.Context,
	logger *slog.Logger,
	scene domain.Scene,
	overridePrompt string,
	at stamp,
	settings domain.GenerationSettings,
) (prompt string, settled domain.Scene, done bool) {
	if overridePrompt != "" {
		return overridePrompt, scene, false
	}
	if scene.FinalPrompt != "" {
		return scene.FinalPrompt, scene, false
	}

	chars := o.store.ResolveCharacters(scene.CharacterIDs)
	enhanceStart := time.Now()
	enhanced, err := o.enhance(ctx, scene, chars, settings)
	if err != nil {
		metrics.ObserveRemoteCall("enhance", metrics.OutcomeFailure, enhanceStart)
		logger.ErrorContext(ctx, "プロンプト拡張に失敗したため基本プロンプトを保存します", "error", err)
		return "", o.finish(ctx, logger, scene.ID, at, store.ScenePatch{
			FinalPrompt: ptr(o.composer.BuildBasic(scene, chars, settings)),
			Error:       ptr(err.Error()),
			Generating:  ptr(false),
		}, metrics.OutcomeFailure), true
	}
	metrics.ObserveRemoteCall("enhance", metrics.OutcomeSuccess, enhanceStart)

	updated, applied, found := o.store.UpdateSceneAt(scene.ID, at.revision, at.attempt, store.ScenePatch{FinalPrompt: ptr(enhanced)})
	if !found || !applied {
		// 拡張中に編集・削除・再生成されたため、古い入力での画像生成は行わない
		return "", o.finish(ctx, logger, scene.ID, at, store.ScenePatch{Generating: ptr(false)}, metrics.OutcomeStale), true
	}
	logger.DebugContext(ctx, "拡張プロンプトを保存しました", "prompt_length", len(enhanced))
	return enhanced, updated, false
}

func (o *Orchestrator) enhance(ctx context.Context, scene domain.Scene, chars []domain.Character, settings domain.GenerationSettings) (string, error) {
	req, err := o.composer.BuildEnhanced(scene, chars, settings)
	if err != nil {
		return "", domain.NewEnhancementError(err)
	}
	text, err := o.client.EnhancePrompt(ctx, req, o.cfg.EnhanceModel)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewEnhancementError(generator.ErrEmptyEnhancement)
	}
	return text, nil
}

// stamp は生成開始時点のシーンの Revision と Attempt です。
type stamp struct {
	revision uint64
	attempt  uint64
}

// finish は生成結果をストアに書き戻します。
// 開始後に編集されていた場合は Generating のみを戻し、後続の生成が始まっていた場合は何も書き戻しません。
func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, sceneID string, at stamp, patch store.ScenePatch, outcome string) domain.Scene {
	scene, applied, found := o.store.UpdateSceneAt(sceneID, at.revision, at.attempt, patch)
	switch {
	case !found:
		logger.WarnContext(ctx, "生成中にシーンが削除されたため結果を破棄します")
		outcome = metrics.OutcomeStale
	case scene.Attempt != at.attempt:
		logger.WarnContext(ctx, "後続の生成が開始されたため結果を破棄します",
			"started_attempt", at.attempt,
			"current_attempt", scene.Attempt)
		outcome = metrics.OutcomeStale
	case !applied:
		logger.WarnContext(ctx, "生成中にシーンが編集されたため結果を破棄します",
			"started_revision", at.revision,
			"current_revision", scene.Revision)
		outcome = metrics.OutcomeStale
	}
	metrics.RecordGeneration(outcome)
	return scene
}

// RegenerateWithPrompt は利用者が編集したプロンプトを FinalPrompt に保存し、拡張を行わずに再生成します。
func (o *Orchestrator) RegenerateWithPrompt(ctx context.Context, sceneID, prompt string) (domain.Scene, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Scene{}, domain.NewValidationError("プロンプトは空にできません")
	}
	if _, ok := o.store.UpdateScene(sceneID, store.ScenePatch{FinalPrompt: ptr(prompt)}); !ok {
		return domain.Scene{}, ErrSceneNotFound
	}
	return o.GenerateScene(ctx, sceneID, prompt)
}

// PreviewPrompt はプロンプト編集時の初期値を返します。
// キャッシュ済みの FinalPrompt があればそれを、なければ基本プロンプトを返します。
func (o *Orchestrator) PreviewPrompt(sceneID string) (string, error) {
	scene, ok := o.store.Scene(sceneID)
	if !ok {
		return "", ErrSceneNotFound
	}
	if scene.FinalPrompt != "" {
		return scene.FinalPrompt, nil
	}
	chars := o.store.ResolveCharacters(scene.CharacterIDs)
	return o.composer.BuildBasic(scene, chars, o.store.Settings()), nil
}

func ptr[T any](v T) *T {
	return &v
}
