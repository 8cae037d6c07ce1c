package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/metrics"
)

var (
	// ErrNothingPending は一括生成の対象となるシーンが無いことを示します。
	ErrNothingPending = errors.New("nothing to do: 生成待ちのシーンはありません")
	// ErrBatchInProgress は別の一括生成が実行中であることを示します。
	ErrBatchInProgress = errors.New("一括生成は既に実行中です")
)

// SceneOutcome は一括生成における1シーン分の結果です。
type SceneOutcome struct {
	SceneID     string `json:"sceneId"`
	PanelNumber int    `json:"panelNumber"`
	Succeeded   bool   `json:"succeeded"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchReport は一括生成の集計です。
type BatchReport struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Outcomes  []SceneOutcome `json:"outcomes"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// GenerateAllPending は画像なし・生成中でない・エラーなしのシーンを、パネル順に1件ずつ生成します。
// 各シーンの外部呼び出しが完了してから次のシーンに進み、途中の失敗で中断はしません。
// 対象が無い場合は何も呼び出さず ErrNothingPending を返します。
func (o *Orchestrator) GenerateAllPending(ctx context.Context) (BatchReport, error) {
	if !o.batchMu.TryLock() {
		return BatchReport{}, ErrBatchInProgress
	}
	defer o.batchMu.Unlock()

	candidates := o.store.PendingScenes()
	if len(candidates) == 0 {
		slog.InfoContext(ctx, "生成待ちのシーンがありません")
		metrics.BatchRunsTotal.WithLabelValues("empty").Inc()
		return BatchReport{}, ErrNothingPending
	}

	startTime := time.Now()
	report := BatchReport{Outcomes: make([]SceneOutcome, 0, len(candidates))}
	slog.InfoContext(ctx, "一括生成を開始します", "count", len(candidates))

	for i, candidate := range candidates {
		if i > 0 {
			slog.DebugContext(ctx, "APIレート制限を確認中...", "current_idx", i)
			if err := o.limiter.Wait(ctx); err != nil {
				report.Elapsed = time.Since(startTime).Round(time.Millisecond)
				metrics.BatchRunsTotal.WithLabelValues("canceled").Inc()
				return report, fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
			}
		}

		outcome := SceneOutcome{SceneID: candidate.ID, PanelNumber: candidate.PanelNumber}
		if current, ok := o.store.Scene(candidate.ID); !ok || !current.IsPending() {
			// 待機中に削除・編集・個別生成されたシーンは対象外
			outcome.Skipped = true
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		scene, err := o.GenerateScene(ctx, candidate.ID, "")
		switch {
		case errors.Is(err, ErrSceneNotFound):
			outcome.Skipped = true
		case err != nil:
			outcome.Error = err.Error()
			report.Attempted++
			report.Failed++
		case scene.Error != "":
			outcome.Error = scene.Error
			report.Attempted++
			report.Failed++
		default:
			outcome.Succeeded = scene.HasImage()
			report.Attempted++
			if outcome.Succeeded {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Elapsed = time.Since(startTime).Round(time.Millisecond)
	metrics.BatchRunsTotal.WithLabelValues("completed").Inc()
	slog.InfoContext(ctx, "一括生成が完了しました",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", report.Elapsed)
	return report, nil
}
