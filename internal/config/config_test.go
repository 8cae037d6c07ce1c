package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("未設定の場合は既定値になること", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GENERATION_INTERVAL", "")
		cfg := LoadConfig()
		assert.Empty(t, cfg.GeminiAPIKey)
		assert.Equal(t, DefaultModel, cfg.GeminiModel)
		assert.Equal(t, DefaultRateInterval, cfg.RateInterval)
	})

	t.Run("環境変数の値を読み込むこと", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "secret")
		t.Setenv("GENERATION_INTERVAL", "5s")
		t.Setenv("ART_STYLE", "NOIR")
		cfg := LoadConfig()
		assert.Equal(t, "secret", cfg.GeminiAPIKey)
		assert.Equal(t, 5*time.Second, cfg.RateInterval)

		settings, err := cfg.Settings()
		require.NoError(t, err)
		assert.Equal(t, "Film Noir", settings.Style.Label)
	})

	t.Run("不正な期間指定は既定値に戻すこと", func(t *testing.T) {
		t.Setenv("HTTP_TIMEOUT", "soon")
		assert.Equal(t, DefaultHTTPTimeout, LoadConfig().HTTPTimeout)
	})
}
