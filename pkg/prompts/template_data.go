package prompts

import (
	_ "embed"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

//go:embed enhanced.md
var enhancedTemplate string

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
// ラベルはテンプレートに埋め込む形（小文字）に整形済みです。
type TemplateData struct {
	SceneText     string
	Characters    []domain.Character
	StyleFragment string
	StyleLabel    string
	AspectRatio   string
	AspectLabel   string
}

// NewTemplateData はシーンと設定からテンプレートデータを組み立てます。
func NewTemplateData(scene domain.Scene, chars []domain.Character, settings domain.GenerationSettings) TemplateData {
	return TemplateData{
		SceneText:     scene.UserText,
		Characters:    chars,
		StyleFragment: settings.Style.Fragment,
		StyleLabel:    strings.ToLower(settings.Style.Label),
		AspectRatio:   settings.Aspect.ID,
		AspectLabel:   strings.ToLower(settings.Aspect.Label),
	}
}
