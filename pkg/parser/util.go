package parser

import (
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// resolveBaseURL はプロジェクトファイルの場所から、参照画像を解決するための基準を導き出します。
// gs:// や http(s):// の場合は末尾スラッシュ付きのディレクトリURL、それ以外はローカルのディレクトリです。
func resolveBaseURL(projectPath string) string {
	if projectPath == "" {
		return ""
	}
	if !strings.Contains(projectPath, "://") {
		return filepath.Dir(projectPath)
	}

	u, err := url.Parse(projectPath)
	if err != nil {
		slog.Warn("プロジェクトファイルのURLの解析に失敗しました",
			"url", projectPath,
			"error", err,
		)
		return ""
	}

	switch u.Scheme {
	case "gs", "http", "https":
		dir := path.Dir(u.Path)
		if dir == "." || dir == "/" {
			dir = ""
		}
		u.Path = dir + "/"
		u.RawQuery = ""
		u.Fragment = ""
		return u.String()
	default:
		slog.Debug("未対応のURLスキームのため、参照画像の解決をスキップします", "scheme", u.Scheme)
		return ""
	}
}

// resolveReference は相対パスの参照を base から解決します。
// データURL、スキーム付きURL、絶対パスはそのまま返します。
func resolveReference(base, ref string) string {
	if ref == "" || base == "" || domain.IsDataURL(ref) || strings.Contains(ref, "://") || path.IsAbs(ref) {
		return ref
	}
	if !strings.Contains(base, "://") {
		return filepath.Join(base, ref)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
