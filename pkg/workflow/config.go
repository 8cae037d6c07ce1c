package workflow

import (
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/generator"
)

// デフォルト値の定義
const (
	DefaultRateInterval = 2 * time.Second
	DefaultRateBurst    = 1
)

// Config は Orchestrator を動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	EnhanceModel string

	// --- Batch Settings ---
	// RateInterval は一括生成でシーン間に空ける最小間隔です。0 以下なら待機しません。
	RateInterval time.Duration
	RateBurst    int
}

// DefaultConfig はデフォルト値で初期化された Config を返します。
func DefaultConfig() Config {
	return Config{
		EnhanceModel: generator.DefaultEnhanceModel,
		RateInterval: DefaultRateInterval,
		RateBurst:    DefaultRateBurst,
	}
}
