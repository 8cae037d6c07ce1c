package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/examples"
	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/spf13/cobra"
)

// projectFlags はプロジェクトファイルを扱うコマンドの共通フラグなのだ。
type projectFlags struct {
	ProjectFile string
	Sample      bool
	Style       string
	Aspect      string
}

type generateFlags struct {
	projectFlags
	OutputDir string
	Title     string
	Interval  time.Duration
}

var genOpts generateFlags

// generateCmd はプロジェクトファイルの未生成シーンを順番に生成し、ストーリーボードを書き出すのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "プロジェクトファイルの全シーンを生成してストーリーボードを書き出すのだ。",
	Long: `YAML のプロジェクトファイルを読み込み、画像の無いシーンを1件ずつ生成するのだ。
出力は画像ファイル（パネル）と storyboard.md になるのだよ。`,
	RunE: generateCommand,
}

func init() {
	addProjectFlags(generateCmd, &genOpts.projectFlags)
	generateCmd.Flags().StringVarP(&genOpts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "出力ディレクトリ（ローカル or gs://...）なのだ。")
	generateCmd.Flags().StringVarP(&genOpts.Title, "title", "t", "", "ストーリーボードのタイトルなのだ。省略時はプロジェクトの title を使うのだ。")
	generateCmd.Flags().DurationVar(&genOpts.Interval, "interval", 0, "シーン間の最小間隔なのだ。（既定: "+config.DefaultRateInterval.String()+"）")
}

func addProjectFlags(cmd *cobra.Command, pf *projectFlags) {
	cmd.Flags().StringVarP(&pf.ProjectFile, "project", "p", config.DefaultProjectFile, "プロジェクトファイルのパス（ローカル or gs://...）なのだ。")
	cmd.Flags().BoolVar(&pf.Sample, "sample", false, "同梱のサンプルプロジェクトを使うのだ。--project より優先されるのだ。")
	cmd.Flags().StringVar(&pf.Style, "style", "", "画風 ID でプロジェクトの style を上書きするのだ。")
	cmd.Flags().StringVar(&pf.Aspect, "aspect", "", "アスペクト比でプロジェクトの aspect_ratio を上書きするのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := loadConfig()
	if genOpts.Interval > 0 {
		cfg.RateInterval = genOpts.Interval
	}
	if cfg.GeminiAPIKey == "" {
		slog.WarnContext(ctx, "GEMINI_API_KEY が設定されていないため、全シーンが capability unavailable になるのだ")
	}

	app, project, err := loadProject(ctx, cfg, genOpts.projectFlags)
	if err != nil {
		return err
	}
	if app.Writer == nil {
		return errors.New("出力先のライターが利用できないのだ")
	}

	report, err := app.Orchestrator.GenerateAllPending(ctx)
	switch {
	case errors.Is(err, workflow.ErrNothingPending):
		slog.InfoContext(ctx, "生成待ちのシーンはないのだ")
	case err != nil:
		return fmt.Errorf("一括生成中にエラーが発生したのだ: %w", err)
	default:
		slog.InfoContext(ctx, "一括生成が完了したのだ",
			"attempted", report.Attempted,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"elapsed", report.Elapsed.Round(time.Millisecond))
	}

	title := genOpts.Title
	if title == "" {
		title = project.Title
	}
	pub := publisher.NewStoryboardPublisher(app.Writer)
	result, err := pub.Publish(ctx, app.Store.Snapshot(), publisher.Options{Title: title, OutputDir: genOpts.OutputDir})
	if err != nil {
		return fmt.Errorf("ストーリーボードの書き出しに失敗したのだ: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d images)\n", result.MarkdownPath, len(result.ImagePaths))
	if report.Failed > 0 {
		return fmt.Errorf("%d 件のシーンが失敗したのだ", report.Failed)
	}
	return nil
}

// loadProject はアプリケーションを組み立て、プロジェクトファイルをストアに取り込むのだ。
func loadProject(ctx context.Context, cfg *config.Config, pf projectFlags) (*builder.AppContext, *domain.ProjectFile, error) {
	app, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var project *domain.ProjectFile
	if pf.Sample {
		project, err = examples.LoadStoryboard()
	} else {
		project, err = parser.NewProjectParser(app.Reader).ParseFromPath(ctx, pf.ProjectFile)
	}
	if err != nil {
		return nil, nil, err
	}
	if pf.Style != "" {
		project.Style = pf.Style
	}
	if pf.Aspect != "" {
		project.AspectRatio = pf.Aspect
	}

	if err := workflow.ImportProject(ctx, app.Store, project, app.References); err != nil {
		return nil, nil, err
	}
	slog.InfoContext(ctx, "プロジェクトを読み込んだのだ",
		"file", pf.ProjectFile,
		"characters", len(project.Characters),
		"scenes", len(project.Scenes))
	return app, project, nil
}
