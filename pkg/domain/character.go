package domain

import (
	"fmt"
	"net/http"
	"strings"
)

// MaxReferenceImageSize は参照画像として受け付ける最大バイト数です (2MiB)。
const MaxReferenceImageSize = 2 * 1024 * 1024

// allowedReferenceMimeTypes は参照画像として受け付ける MIME タイプの一覧です。
var allowedReferenceMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// ReferenceImage はキャラクターの見た目を固定するための参照画像です。
// Data は JSON では base64 文字列として表現されます。
type ReferenceImage struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType"`
}

// Character はストーリーボードに登場するキャラクターの定義を保持します。
type Character struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ReferenceImage *ReferenceImage `json:"referenceImage,omitempty"`
}

// CharactersMap はIDをキーとしたキャラクターの検索用マップです。
type CharactersMap map[string]Character

// String はキャラクターの情報を文字列で返します。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// HasReference は参照画像が設定されているかを返します。
func (c Character) HasReference() bool {
	return c.ReferenceImage != nil && len(c.ReferenceImage.Data) > 0
}

// Clone は参照画像のバイト列まで複製したコピーを返します。
func (c Character) Clone() Character {
	if c.ReferenceImage != nil {
		img := *c.ReferenceImage
		img.Data = append([]byte(nil), c.ReferenceImage.Data...)
		c.ReferenceImage = &img
	}
	return c
}

// Validate は名前と説明が空でないこと、参照画像が制約を満たすことを検証します。
func (c Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("キャラクター名は必須です")
	}
	if strings.TrimSpace(c.Description) == "" {
		return NewValidationError("キャラクターの説明は必須です")
	}
	if c.ReferenceImage != nil {
		return c.ReferenceImage.Validate()
	}
	return nil
}

// Validate は参照画像のサイズと MIME タイプを検証します。
// MimeType が空の場合はデータから推定した値で補完します。
func (r *ReferenceImage) Validate() error {
	if len(r.Data) == 0 {
		return NewValidationError("参照画像のデータが空です")
	}
	if len(r.Data) > MaxReferenceImageSize {
		return NewValidationError(fmt.Sprintf("参照画像が大きすぎます (%d bytes, 上限 %d bytes)", len(r.Data), MaxReferenceImageSize))
	}
	if r.MimeType == "" {
		r.MimeType = http.DetectContentType(r.Data)
	}
	if _, ok := allowedReferenceMimeTypes[r.MimeType]; !ok {
		return NewValidationError(fmt.Sprintf("未対応の画像形式です: %s", r.MimeType))
	}
	return nil
}

// BuildCharactersMap はスライス形式のデータを検索効率の良いマップ形式に変換します。
func BuildCharactersMap(chars []Character) CharactersMap {
	m := make(CharactersMap, len(chars))
	for _, c := range chars {
		m[c.ID] = c
	}
	return m
}

// Resolve は ids の順序を保ったままキャラクターを引き当てます。
// 存在しないIDは黙って読み飛ばします。
func (m CharactersMap) Resolve(ids []string) []Character {
	resolved := make([]Character, 0, len(ids))
	for _, id := range ids {
		if char, ok := m[id]; ok {
			resolved = append(resolved, char)
		}
	}
	return resolved
}
