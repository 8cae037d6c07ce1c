package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// CameraHint は基本プロンプトの末尾に付与する構図の指示です。
const CameraHint = " Consider camera angles or shot types if implied by the scene description (e.g., wide shot, close-up, eye-level)."

// BuildBasic は構造化された入力だけから決定論的にプロンプトを組み立てます。
// 外部呼び出しを行わず、常に成功します。
func BuildBasic(scene domain.Scene, chars []domain.Character, settings domain.GenerationSettings) string {
	var sb strings.Builder
	sb.WriteString(scene.UserText)

	if len(chars) > 0 {
		entries := make([]string, 0, len(chars))
		for _, c := range chars {
			entries = append(entries, fmt.Sprintf("%s (%s)", c.Name, c.Description))
		}
		sb.WriteString("\n\nCharacters involved: ")
		sb.WriteString(strings.Join(entries, "; "))
	}

	sb.WriteString(fmt.Sprintf("\n\nArt Style: %s. Emphasize %s qualities.",
		settings.Style.Fragment, strings.ToLower(settings.Style.Label)))
	sb.WriteString(fmt.Sprintf("\n\nImage Aspect Ratio Hint: %s. Generate image with a %s aspect ratio.",
		settings.Aspect.ID, strings.ToLower(settings.Aspect.Label)))
	sb.WriteString(CameraHint)

	return strings.TrimSpace(sb.String())
}
