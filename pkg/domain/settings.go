package domain

import (
	"fmt"
	"strings"
)

// ArtStyle は画風の選択肢です。ID は安定したキー、Fragment はプロンプトに注入する文言です。
type ArtStyle struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Fragment string `json:"fragment"`
}

// AspectRatio はアスペクト比の選択肢です。ID はそのまま API に渡す比率文字列です。
type AspectRatio struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GenerationSettings はプロセス全体で共有される生成設定です。
// 変更しても既存シーンのキャッシュは無効化されません。
type GenerationSettings struct {
	Style  ArtStyle    `json:"style"`
	Aspect AspectRatio `json:"aspectRatio"`
}

const (
	DefaultArtStyleID    = "PHOTOREALISTIC"
	DefaultAspectRatioID = "16:9"
)

var artStyles = []ArtStyle{
	{ID: "PHOTOREALISTIC", Label: "Photorealistic", Fragment: "photorealistic, cinematic lighting, high detail, film still"},
	{ID: "CARTOON", Label: "Cartoon / Animated", Fragment: "charming cartoon style, animated movie screenshot, vibrant colors"},
	{ID: "PIXAR", Label: "3D Pixar Style", Fragment: "3D Pixar animation style, highly detailed characters, vibrant and warm lighting, cinematic composition, reminiscent of modern animated feature films"},
	{ID: "SKETCH", Label: "Sketch / Pencil Drawing", Fragment: "pencil sketch, monochrome, hand-drawn aesthetic, detailed shading"},
	{ID: "WATERCOLOR", Label: "Watercolor", Fragment: "watercolor painting, soft edges, artistic effect, flowing colors"},
	{ID: "CYBERPUNK", Label: "Cyberpunk", Fragment: "cyberpunk art style, neon lights, futuristic city, gritty atmosphere, Blade Runner aesthetic"},
	{ID: "FANTASY", Label: "Fantasy", Fragment: "high fantasy art, epic scenery, magical elements, detailed illustration"},
	{ID: "NOIR", Label: "Film Noir", Fragment: "film noir style, black and white, dramatic shadows, 1940s detective movie"},
	{ID: "PIXELART", Label: "Pixel Art", Fragment: "pixel art, retro 16-bit video game style, limited color palette"},
	{ID: "MINIMALIST", Label: "Minimalist Vector", Fragment: "minimalist vector art, clean lines, flat colors, simple shapes"},
	{ID: "VINTAGE_COMIC", Label: "Vintage Comic", Fragment: "vintage comic book art, halftone dots, bold outlines, retro colors"},
}

var aspectRatios = []AspectRatio{
	{ID: "16:9", Label: "Landscape (16:9)"},
	{ID: "1:1", Label: "Square (1:1)"},
	{ID: "9:16", Label: "Portrait (9:16)"},
	{ID: "4:3", Label: "Classic (4:3)"},
	{ID: "3:2", Label: "Photo (3:2)"},
}

// ArtStyles は選択可能な画風の一覧を表示順で返します。
func ArtStyles() []ArtStyle {
	return append([]ArtStyle(nil), artStyles...)
}

// AspectRatios は選択可能なアスペクト比の一覧を表示順で返します。
func AspectRatios() []AspectRatio {
	return append([]AspectRatio(nil), aspectRatios...)
}

// FindArtStyle は ID（大文字小文字は区別しない）から画風を検索します。
func FindArtStyle(id string) (ArtStyle, error) {
	for _, s := range artStyles {
		if strings.EqualFold(s.ID, strings.TrimSpace(id)) {
			return s, nil
		}
	}
	return ArtStyle{}, NewValidationError(fmt.Sprintf("未知の画風です: %q", id))
}

// FindAspectRatio は比率文字列からアスペクト比を検索します。
func FindAspectRatio(id string) (AspectRatio, error) {
	for _, a := range aspectRatios {
		if a.ID == strings.TrimSpace(id) {
			return a, nil
		}
	}
	return AspectRatio{}, NewValidationError(fmt.Sprintf("未知のアスペクト比です: %q", id))
}

// DefaultSettings は既定の画風とアスペクト比を返します。
func DefaultSettings() GenerationSettings {
	style, _ := FindArtStyle(DefaultArtStyleID)
	aspect, _ := FindAspectRatio(DefaultAspectRatioID)
	return GenerationSettings{Style: style, Aspect: aspect}
}

// ResolveSettings は ID の組から設定を組み立てます。空の ID は既定値で補います。
func ResolveSettings(styleID, aspectID string) (GenerationSettings, error) {
	settings := DefaultSettings()
	if styleID != "" {
		style, err := FindArtStyle(styleID)
		if err != nil {
			return settings, err
		}
		settings.Style = style
	}
	if aspectID != "" {
		aspect, err := FindAspectRatio(aspectID)
		if err != nil {
			return settings, err
		}
		settings.Aspect = aspect
	}
	return settings, nil
}
