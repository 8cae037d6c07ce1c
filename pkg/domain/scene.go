package domain

import (
	"slices"
	"strings"
)

// Scene はストーリーボードの1コマ（パネル）と、その生成状態を表します。
// 文字列フィールドの空文字は「未設定」を意味します。
type Scene struct {
	ID           string   `json:"id"`
	PanelNumber  int      `json:"panelNumber"`
	UserText     string   `json:"userText"`
	CharacterIDs []string `json:"characterIds"`
	FinalPrompt  string   `json:"finalPrompt,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Generating   bool     `json:"generating"`
	Error        string   `json:"error,omitempty"`
	// Revision は本文またはキャラクター構成が編集されるたびに増加します。
	Revision uint64 `json:"revision"`
	// Attempt は生成を開始するたびに増加します。
	Attempt uint64 `json:"attempt"`
}

// Clone は CharacterIDs スライスを複製したコピーを返します。
func (s Scene) Clone() Scene {
	s.CharacterIDs = slices.Clone(s.CharacterIDs)
	return s
}

// IsPending は一括生成の対象となる状態かどうかを返します。
func (s Scene) IsPending() bool {
	return s.ImageURL == "" && !s.Generating && s.Error == ""
}

// HasImage は生成済み画像を保持しているかを返します。
func (s Scene) HasImage() bool {
	return s.ImageURL != ""
}

// ValidateSceneText はシーン本文が空でないことを検証します。
func ValidateSceneText(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("シーンの説明は必須です")
	}
	return nil
}
