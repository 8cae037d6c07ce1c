package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// ReferenceResolver は参照画像の指定を画像データに解決します。
type ReferenceResolver interface {
	Load(ctx context.Context, ref string) (*domain.ReferenceImage, error)
}

// ImportProject はプロジェクト定義をストアに登録します。
// ファイル内のキャラクターキーはストアで採番された ID に置き換えられます。
// シーンに prompt が指定されている場合は FinalPrompt として保存し、拡張を省略させます。
func ImportProject(ctx context.Context, st *store.Store, p *domain.ProjectFile, refs ReferenceResolver) error {
	settings, err := domain.ResolveSettings(p.Style, p.AspectRatio)
	if err != nil {
		return err
	}
	if p.Style != "" || p.AspectRatio != "" {
		st.SetSettings(settings)
	}

	ids := make(map[string]string, len(p.Characters))
	for _, pc := range p.Characters {
		char := domain.Character{Name: pc.Name, Description: pc.Description}
		if pc.Reference != "" {
			if refs == nil {
				return fmt.Errorf("キャラクター %s の参照画像を読み込めません: リゾルバが未設定です", pc.Name)
			}
			img, err := refs.Load(ctx, pc.Reference)
			if err != nil {
				return fmt.Errorf("キャラクター %s の参照画像の読み込みに失敗しました: %w", pc.Name, err)
			}
			char.ReferenceImage = img
		}
		if err := char.Validate(); err != nil {
			return fmt.Errorf("キャラクター %s: %w", pc.Name, err)
		}
		ids[pc.CharacterKey()] = st.AddCharacter(char).ID
	}

	for _, ps := range p.Scenes {
		charIDs := make([]string, 0, len(ps.Characters))
		for _, key := range ps.Characters {
			if id, ok := ids[key]; ok {
				charIDs = append(charIDs, id)
			}
		}
		scene := st.AddScene(ps.Text, charIDs)
		if ps.Prompt != "" {
			st.UpdateScene(scene.ID, store.ScenePatch{FinalPrompt: ptr(ps.Prompt)})
		}
	}

	slog.InfoContext(ctx, "プロジェクトを読み込みました",
		"title", p.Title,
		"characters", len(p.Characters),
		"scenes", len(p.Scenes),
		"style", st.Settings().Style.ID,
		"aspect_ratio", st.Settings().Aspect.ID)
	return nil
}
