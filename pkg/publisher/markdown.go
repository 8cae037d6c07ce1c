package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

const defaultTitle = "Storyboard"

// BuildMarkdown はパネル順にシーン本文、登場キャラクター、プロンプト、画像または失敗理由を列挙します。
// imagePaths はシーンIDから Markdown に埋め込む相対パスへのマップです。
func BuildMarkdown(title string, snap store.Snapshot, imagePaths map[string]string) string {
	if title == "" {
		title = defaultTitle
	}
	chars := domain.BuildCharactersMap(snap.Characters)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("- style: %s\n", snap.Settings.Style.Label))
	sb.WriteString(fmt.Sprintf("- aspect ratio: %s\n\n", snap.Settings.Aspect.Label))

	for _, scene := range snap.Scenes {
		sb.WriteString(fmt.Sprintf("## Panel %d\n\n", scene.PanelNumber))
		if img, ok := imagePaths[scene.ID]; ok {
			sb.WriteString(fmt.Sprintf("![Panel %d](%s)\n\n", scene.PanelNumber, img))
		}
		sb.WriteString(strings.TrimSpace(scene.UserText))
		sb.WriteString("\n\n")

		if resolved := chars.Resolve(scene.CharacterIDs); len(resolved) > 0 {
			names := make([]string, 0, len(resolved))
			for _, c := range resolved {
				names = append(names, c.Name)
			}
			sb.WriteString(fmt.Sprintf("- characters: %s\n", strings.Join(names, ", ")))
		}
		if scene.Error != "" {
			sb.WriteString(fmt.Sprintf("- error: %s\n", scene.Error))
		}
		if scene.FinalPrompt != "" {
			sb.WriteString("\n<details><summary>prompt</summary>\n\n")
			sb.WriteString(scene.FinalPrompt)
			sb.WriteString("\n\n</details>\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
