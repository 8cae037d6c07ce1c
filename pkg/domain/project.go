package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectFile はストーリーボードの定義ファイル（YAML または JSON）の構造です。
type ProjectFile struct {
	Title       string             `yaml:"title"`
	Style       string             `yaml:"style"`
	AspectRatio string             `yaml:"aspect_ratio"`
	Characters  []ProjectCharacter `yaml:"characters"`
	Scenes      []ProjectScene     `yaml:"scenes"`
}

// ProjectCharacter はファイル内のキャラクター定義です。
// Key はファイル内でシーンから参照するためのローカルな識別子です。
type ProjectCharacter struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Reference はデータURL、http(s) URL、gs:// URI、ローカルパスのいずれかです。
	Reference string `yaml:"reference"`
}

// ProjectScene はファイル内のシーン定義です。Characters には Key か Name を指定します。
type ProjectScene struct {
	Text       string   `yaml:"text"`
	Characters []string `yaml:"characters"`
	Prompt     string   `yaml:"prompt"`
}

// ParseProject はバイト列からプロジェクト定義をパースし、参照整合性を検証します。
// JSON は YAML のサブセットのため、どちらの形式も受け付けます。
func ParseProject(data []byte) (*ProjectFile, error) {
	var p ProjectFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("プロジェクトファイルのパースに失敗しました: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// CharacterKey はシーンから参照される際のキーを返します。Key が空なら Name を使います。
func (c ProjectCharacter) CharacterKey() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Name
}

// Validate は必須項目と、シーンからのキャラクター参照を検証します。
func (p *ProjectFile) Validate() error {
	if _, err := ResolveSettings(p.Style, p.AspectRatio); err != nil {
		return err
	}

	keys := make(map[string]struct{}, len(p.Characters))
	for i, c := range p.Characters {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Description) == "" {
			return NewValidationError(fmt.Sprintf("characters[%d]: 名前と説明は必須です", i))
		}
		key := c.CharacterKey()
		if _, dup := keys[key]; dup {
			return NewValidationError(fmt.Sprintf("characters[%d]: キー %q が重複しています", i, key))
		}
		keys[key] = struct{}{}
	}

	for i, s := range p.Scenes {
		if err := ValidateSceneText(s.Text); err != nil {
			return NewValidationError(fmt.Sprintf("scenes[%d]: シーンの説明は必須です", i))
		}
		for _, ref := range s.Characters {
			if _, ok := keys[ref]; !ok {
				return NewValidationError(fmt.Sprintf("scenes[%d]: 未定義のキャラクター %q を参照しています", i, ref))
			}
		}
	}
	return nil
}
