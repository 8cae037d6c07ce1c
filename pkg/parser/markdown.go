package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	fieldKeyStyle       = "style"
	fieldKeyAspectRatio = "aspect_ratio"
	fieldKeyName        = "name"
	fieldKeyDescription = "description"
	fieldKeyReference   = "reference"
	fieldKeyText        = "text"
	fieldKeyCharacters  = "characters"
	fieldKeyPrompt      = "prompt"
)

// section は現在解析中のブロックの種類です。
type section int

const (
	sectionHeader section = iota
	sectionCharacter
	sectionPanel
)

// MarkdownParser は Markdown 形式のプロジェクト定義を解析する構造体です。
//
//	# タイトル
//	- style: WATERCOLOR
//	- aspect_ratio: 16:9
//
//	## Character: mira
//	- name: Mira
//	- description: a young lighthouse keeper
//
//	## Panel
//	- text: Mira climbs the stairs
//	- characters: mira
type MarkdownParser struct{}

// NewMarkdownParser は MarkdownParser を生成します。
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse は Markdown テキストを解析して domain.ProjectFile に変換し、参照整合性を検証します。
func (p *MarkdownParser) Parse(input string) (*domain.ProjectFile, error) {
	project := &domain.ProjectFile{}
	current := sectionHeader
	var char *domain.ProjectCharacter
	var scene *domain.ProjectScene

	flush := func() {
		if char != nil {
			project.Characters = append(project.Characters, *char)
			char = nil
		}
		if scene != nil && strings.TrimSpace(scene.Text) != "" {
			project.Scenes = append(project.Scenes, *scene)
		}
		scene = nil
	}

	for _, line := range strings.Split(input, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}

		if m := CharacterRegex.FindStringSubmatch(trimmedLine); m != nil {
			flush()
			current = sectionCharacter
			char = &domain.ProjectCharacter{Key: strings.TrimSpace(m[1])}
			continue
		}
		if PanelRegex.MatchString(trimmedLine) {
			flush()
			current = sectionPanel
			scene = &domain.ProjectScene{}
			continue
		}
		if m := TitleRegex.FindStringSubmatch(trimmedLine); m != nil && current == sectionHeader {
			project.Title = strings.TrimSpace(m[1])
			continue
		}

		m := FieldRegex.FindStringSubmatch(trimmedLine)
		if m == nil {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m[1])), " ", "_")
		val := strings.TrimSpace(m[2])

		switch current {
		case sectionHeader:
			switch key {
			case fieldKeyStyle:
				project.Style = val
			case fieldKeyAspectRatio:
				project.AspectRatio = val
			default:
				slog.Debug("Markdown内に未知のフィールドキーが見つかりました", "section", "header", "key", key)
			}
		case sectionCharacter:
			switch key {
			case fieldKeyName:
				char.Name = val
			case fieldKeyDescription:
				char.Description = val
			case fieldKeyReference:
				char.Reference = val
			default:
				slog.Debug("Markdown内に未知のフィールドキーが見つかりました", "section", "character", "key", key)
			}
		case sectionPanel:
			switch key {
			case fieldKeyText:
				scene.Text = val
			case fieldKeyCharacters:
				scene.Characters = splitList(val)
			case fieldKeyPrompt:
				scene.Prompt = val
			default:
				slog.Debug("Markdown内に未知のフィールドキーが見つかりました", "section", "panel", "key", key)
			}
		}
	}
	flush()

	if len(project.Scenes) == 0 {
		return nil, fmt.Errorf("有効なパネル情報が見つかりませんでした")
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return project, nil
}

// splitList はカンマ区切りの値を分割します。空要素は除きます。
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
