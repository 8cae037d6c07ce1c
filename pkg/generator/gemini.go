package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"google.golang.org/genai"
)

var (
	// ErrEmptyEnhancement はプロンプト拡張の応答が空だったことを示します。
	ErrEmptyEnhancement = errors.New("拡張プロンプトが空で返されました")
	// ErrNoImage は画像生成の応答に画像データが含まれなかったことを示します。
	ErrNoImage = errors.New("応答に画像データが含まれていません")
)

// modelsAPI は genai.Models のうち本パッケージが利用するメソッドです。
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GeminiClient は Gemini API を使った RemoteClient の実装です。
type GeminiClient struct {
	models     modelsAPI
	imageModel string
}

// NewGeminiClient は API キーから GeminiClient を生成します。
// API キーが空の場合は通信を行わず、IsAvailable が false を返すクライアントになります。
func NewGeminiClient(ctx context.Context, apiKey, imageModel string) (*GeminiClient, error) {
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	if apiKey == "" {
		slog.WarnContext(ctx, "GEMINI_API_KEY が未設定のため、画像生成は利用できません")
		return &GeminiClient{imageModel: imageModel}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini クライアントの初期化に失敗しました: %w", err)
	}
	return &GeminiClient{models: client.Models, imageModel: imageModel}, nil
}

// IsAvailable は認証情報が設定されているかを返します。
func (c *GeminiClient) IsAvailable() bool {
	return c != nil && c.models != nil
}

// EnhancePrompt は指示文と参照画像をマルチモーダルモデルに送り、画像生成用のプロンプトを得ます。
func (c *GeminiClient) EnhancePrompt(ctx context.Context, req prompts.EnhanceRequest, model string) (string, error) {
	if !c.IsAvailable() {
		return "", domain.ErrCapabilityUnavailable
	}
	if model == "" {
		model = DefaultEnhanceModel
	}

	contents := []*genai.Content{genai.NewContentFromParts(toParts(req), genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", domain.NewEnhancementError(err)
	}
	if resp == nil {
		return "", domain.NewEnhancementError(ErrEmptyEnhancement)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.NewEnhancementError(ErrEmptyEnhancement)
	}
	return text, nil
}

// RenderImage はプロンプトから JPEG 画像を1枚生成し、データURLとして返します。
func (c *GeminiClient) RenderImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (string, error) {
	if !c.IsAvailable() {
		return "", domain.ErrCapabilityUnavailable
	}

	resp, err := c.models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspect.ID,
		OutputMIMEType: OutputMimeType,
	})
	if err != nil {
		return "", domain.NewRenderError(err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", domain.NewRenderError(ErrNoImage)
	}

	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return "", domain.NewRenderError(ErrNoImage)
	}
	return domain.EncodeDataURL(OutputMimeType, img.Image.ImageBytes), nil
}

// toParts は依頼を送信順のパーツ列に変換します。
func toParts(req prompts.EnhanceRequest) []*genai.Part {
	parts := make([]*genai.Part, 0, 1+len(req.Attachments)*2)
	parts = append(parts, genai.NewPartFromText(req.Instruction))
	for _, a := range req.Attachments {
		parts = append(parts,
			genai.NewPartFromText(a.Label),
			genai.NewPartFromBytes(a.Image.Data, a.Image.MimeType),
		)
	}
	return parts
}
