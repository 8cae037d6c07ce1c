package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// PromptBuilder はテンプレートデータから拡張依頼の指示文を構築します。
type PromptBuilder interface {
	Build(data TemplateData) (string, error)
}

// TextPromptBuilder は text/template による PromptBuilder です。
// 未定義のキーを参照するテンプレートは実行時にエラーになります。
type TextPromptBuilder struct {
	tmpl *template.Template
}

// NewTextPromptBuilder は埋め込みの拡張テンプレートを解析します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	return ParseTextPromptBuilder("enhanced", enhancedTemplate)
}

// ParseTextPromptBuilder は任意のテンプレート文字列から TextPromptBuilder を生成します。
func ParseTextPromptBuilder(name, content string) (*TextPromptBuilder, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("プロンプトテンプレート '%s' が空です", name)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("プロンプトテンプレート '%s' の解析に失敗: %w", name, err)
	}
	return &TextPromptBuilder{tmpl: tmpl}, nil
}

func (b *TextPromptBuilder) Build(data TemplateData) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレート '%s' の実行に失敗しました: %w", b.tmpl.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}
