package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// appFlags は全サブコマンドで共有するフラグの値なのだ。
type appFlags struct {
	AIModel     string
	ImageModel  string
	HTTPTimeout time.Duration
	LogLevel    string
	LogFormat   string
}

var flags appFlags

var rootCmd = &cobra.Command{
	Use:           "storyboard",
	Short:         "シーンの説明文からストーリーボードの画像を生成するのだ。",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env は任意なのだ。無ければ環境変数だけで動くのだよ。
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(".env の読み込みに失敗しました: %w", err)
		}
		cfg := loadConfig()
		logging.Init(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.AIModel, "model", "", "プロンプト拡張に使う Gemini モデル名なのだ。（既定: "+config.DefaultModel+"）")
	pf.StringVar(&flags.ImageModel, "image-model", "", "画像生成に使うモデル名なのだ。（既定: "+config.DefaultImageModel+"）")
	pf.DurationVar(&flags.HTTPTimeout, "http-timeout", 0, "参照画像を取得するときのタイムアウトなのだ。")
	pf.StringVar(&flags.LogLevel, "log-level", "", "ログレベル (debug, info, warn, error) なのだ。（既定: "+config.DefaultLogLevel+"）")
	pf.StringVar(&flags.LogFormat, "log-format", "", "ログ形式 (text, json) なのだ。（既定: "+config.DefaultLogFormat+"）")

	rootCmd.AddCommand(generateCmd, previewCmd, serveCmd)
}

// loadConfig は環境変数の設定にフラグの指定を上書きするのだ。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	if flags.AIModel != "" {
		cfg.GeminiModel = flags.AIModel
	}
	if flags.ImageModel != "" {
		cfg.GeminiImageModel = flags.ImageModel
	}
	if flags.HTTPTimeout > 0 {
		cfg.HTTPTimeout = flags.HTTPTimeout
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.LogFormat = flags.LogFormat
	}
	return cfg
}

// Execute は main.go から呼ばれるエントリポイントなのだ。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}
