package prompts

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Attachment はプロンプト拡張に添付する参照画像と、その直前に置くラベルです。
type Attachment struct {
	Label string
	Image domain.ReferenceImage
}

// EnhanceRequest はプロンプト拡張に送るマルチモーダルな依頼です。
// 送信順は Instruction が先頭、続いて Attachments の (Label, Image) がキャラクター順に並びます。
type EnhanceRequest struct {
	Instruction string
	Attachments []Attachment
}

// Composer はシーンから基本プロンプトと拡張依頼を組み立てます。
type Composer struct {
	builder PromptBuilder
}

// NewComposer は埋め込みテンプレートを使う Composer を生成します。
func NewComposer() (*Composer, error) {
	builder, err := NewTextPromptBuilder()
	if err != nil {
		return nil, err
	}
	return &Composer{builder: builder}, nil
}

// NewComposerWithBuilder は任意の PromptBuilder を使う Composer を生成します。
func NewComposerWithBuilder(builder PromptBuilder) *Composer {
	return &Composer{builder: builder}
}

// BuildBasic は BuildBasic へ委譲します。
func (c *Composer) BuildBasic(scene domain.Scene, chars []domain.Character, settings domain.GenerationSettings) string {
	return BuildBasic(scene, chars, settings)
}

// BuildEnhanced は拡張モードの依頼を組み立てます。
func (c *Composer) BuildEnhanced(scene domain.Scene, chars []domain.Character, settings domain.GenerationSettings) (EnhanceRequest, error) {
	instruction, err := c.builder.Build(NewTemplateData(scene, chars, settings))
	if err != nil {
		return EnhanceRequest{}, fmt.Errorf("拡張プロンプトの構築に失敗しました: %w", err)
	}

	req := EnhanceRequest{Instruction: instruction}
	for _, char := range chars {
		if !char.HasReference() {
			continue
		}
		req.Attachments = append(req.Attachments, Attachment{
			Label: fmt.Sprintf("Reference image for %s (%s):", char.Name, char.Description),
			Image: *char.ReferenceImage,
		})
	}
	return req, nil
}
