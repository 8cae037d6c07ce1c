package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// OutputWriter は生成物をローカルまたはリモートのストレージに保存します。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	Title     string
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string   // 生成された storyboard.md のパス
	ImagePaths   []string // 保存された画像のパス（パネル順）
}

// StoryboardPublisher はストーリーボードの画像と Markdown を書き出します。
type StoryboardPublisher struct {
	writer OutputWriter
}

// NewStoryboardPublisher は StoryboardPublisher を生成します。
func NewStoryboardPublisher(writer OutputWriter) *StoryboardPublisher {
	return &StoryboardPublisher{writer: writer}
}

// Publish は画像を持つシーンの画像を保存し、全パネルの一覧を Markdown として書き出します。
func (p *StoryboardPublisher) Publish(ctx context.Context, snap store.Snapshot, opts Options) (PublishResult, error) {
	result := PublishResult{}

	markdownPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultStoryboardName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	relPaths := make(map[string]string, len(snap.Scenes))
	for _, scene := range snap.Scenes {
		if !scene.HasImage() {
			continue
		}
		saved, err := p.saveImage(ctx, scene, opts.OutputDir)
		if err != nil {
			return result, err
		}
		result.ImagePaths = append(result.ImagePaths, saved)
		relPaths[scene.ID] = path.Join(asset.DefaultImageDir, path.Base(saved))
	}

	content := BuildMarkdown(opts.Title, snap, relPaths)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "ストーリーボードを書き出しました",
		"markdown", markdownPath,
		"images", len(result.ImagePaths))
	return result, nil
}

func (p *StoryboardPublisher) saveImage(ctx context.Context, scene domain.Scene, outputDir string) (string, error) {
	mimeType, data, err := domain.DecodeDataURL(scene.ImageURL)
	if err != nil {
		return "", fmt.Errorf("パネル %d の画像を復元できません: %w", scene.PanelNumber, err)
	}
	fullPath, err := asset.PanelPath(outputDir, scene.PanelNumber)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
	}
	return fullPath, nil
}
