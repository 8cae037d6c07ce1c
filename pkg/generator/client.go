package generator

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

const (
	// DefaultEnhanceModel はプロンプト拡張に使うマルチモーダルモデルです。
	DefaultEnhanceModel = "gemini-2.5-flash"
	// DefaultImageModel は画像生成に使うモデルです。
	DefaultImageModel = "imagen-3.0-generate-002"
	// OutputMimeType は生成画像の形式です。
	OutputMimeType = "image/jpeg"
)

// RemoteClient は外部の生成サービスに対する2種類の呼び出しと、利用可否の確認を抽象化します。
// どの呼び出しも単発で、自動リトライは行いません。
type RemoteClient interface {
	// EnhancePrompt は依頼からより詳細な画像生成プロンプトを得ます。
	// 通信失敗や空の応答は EnhancementFailure になります。
	EnhancePrompt(ctx context.Context, req prompts.EnhanceRequest, model string) (string, error)
	// RenderImage はプロンプトから画像を1枚生成し、データURLで返します。
	// 画像が含まれない応答は RenderFailure になります。
	RenderImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (string, error)
	// IsAvailable は認証情報が設定されているかを返します。通信は行いません。
	IsAvailable() bool
}
