package config

import (
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	DefaultModel             = generator.DefaultEnhanceModel
	DefaultImageModel        = generator.DefaultImageModel
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRateInterval      = 2 * time.Second
	DefaultReferenceCacheTTL = 30 * time.Minute
	DefaultListenAddr        = ":8080"
	DefaultOutputDir         = "output"
	DefaultProjectFile       = "examples/storyboard.yaml"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Config はアプリケーション全体の環境設定を保持する構造体です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	// --- Generation Settings ---
	ArtStyle     string
	AspectRatio  string
	RateInterval time.Duration

	// --- Network & Cache ---
	HTTPTimeout       time.Duration
	ReferenceCacheTTL time.Duration
	ListenAddr        string

	// --- Logging ---
	LogLevel  string
	LogFormat string
}

// LoadConfig は環境変数から設定を読み込み、構造体を返します。
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:       envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel:  envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		ArtStyle:          envutil.GetEnv("ART_STYLE", domain.DefaultArtStyleID),
		AspectRatio:       envutil.GetEnv("ASPECT_RATIO", domain.DefaultAspectRatioID),
		RateInterval:      durationEnv("GENERATION_INTERVAL", DefaultRateInterval),
		HTTPTimeout:       durationEnv("HTTP_TIMEOUT", DefaultHTTPTimeout),
		ReferenceCacheTTL: durationEnv("REFERENCE_CACHE_TTL", DefaultReferenceCacheTTL),
		ListenAddr:        envutil.GetEnv("LISTEN_ADDR", DefaultListenAddr),
		LogLevel:          envutil.GetEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:         envutil.GetEnv("LOG_FORMAT", DefaultLogFormat),
	}
}

// Settings は画風とアスペクト比の設定を解決します。
func (c *Config) Settings() (domain.GenerationSettings, error) {
	return domain.ResolveSettings(c.ArtStyle, c.AspectRatio)
}

// durationEnv は time.ParseDuration 形式の環境変数を読み込みます。不正な値は既定値に戻します。
func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("期間指定の環境変数を解釈できないため既定値を使用します", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}
