package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// InputReader はローカルファイルや GCS のオブジェクトを開きます。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Parser はプロジェクト定義を読み込むためのインターフェースを定義します。
type Parser interface {
	ParseFromPath(ctx context.Context, fullPath string) (*domain.ProjectFile, error)
}

// ProjectParser は拡張子に応じて YAML または Markdown のプロジェクト定義を解析する構造体です。
type ProjectParser struct {
	reader   InputReader
	markdown *MarkdownParser
}

// NewProjectParser は新しい ProjectParser インスタンスを生成します。
// r が nil の場合はローカルファイルのみを読み込みます。
func NewProjectParser(r InputReader) *ProjectParser {
	if r == nil {
		r = localReader{}
	}
	return &ProjectParser{reader: r, markdown: NewMarkdownParser()}
}

// ParseFromPath は指定された GCS URI やローカルファイルパスなどから
// コンテンツを読み込み、解析して domain.ProjectFile を返します。
// 参照画像の相対パスはプロジェクトファイルの場所を基準に解決されます。
func (p *ProjectParser) ParseFromPath(ctx context.Context, projectFile string) (*domain.ProjectFile, error) {
	slog.InfoContext(ctx, "プロジェクトファイルを読み込んでいます", "path", projectFile)
	rc, err := p.reader.Open(ctx, projectFile)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトファイルのオープンに失敗しました (%s): %w", projectFile, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトファイルの読み込みに失敗しました (%s): %w", projectFile, err)
	}

	project, err := p.Parse(projectFile, data)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトファイルのパースに失敗しました (%s): %w", projectFile, err)
	}
	return project, nil
}

// Parse は名前の拡張子で形式を判定して解析し、参照画像のパスを解決します。
func (p *ProjectParser) Parse(name string, data []byte) (*domain.ProjectFile, error) {
	var (
		project *domain.ProjectFile
		err     error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		project, err = p.markdown.Parse(string(data))
	default:
		project, err = domain.ParseProject(data)
	}
	if err != nil {
		return nil, err
	}

	base := resolveBaseURL(name)
	for i := range project.Characters {
		project.Characters[i].Reference = resolveReference(base, project.Characters[i].Reference)
	}
	return project, nil
}

// localReader はリモートIOが利用できない場合のローカルファイル専用リーダーです。
type localReader struct{}

func (localReader) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(name)
}
