package asset

import (
	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultImageDir は生成された画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultStoryboardName は書き出すストーリーボードのデフォルト Markdown ファイル名です。
	DefaultStoryboardName = "storyboard.md"
	// DefaultPanelFileName はパネル画像の共通のベースファイル名です。
	DefaultPanelFileName = "panel.jpg"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入し、
// 新しいパス文字列を生成します。index は1以上の整数である必要があります。
// 例: "path/to/panel.jpg", 1 -> "path/to/panel_1.jpg"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// PanelPath は出力ディレクトリ配下のパネル番号に対応する画像パスを返します。
func PanelPath(outputDir string, panelNumber int) (string, error) {
	base, err := ResolveOutputPath(outputDir, DefaultImageDir+"/"+DefaultPanelFileName)
	if err != nil {
		return "", err
	}
	return GenerateIndexedPath(base, panelNumber)
}
