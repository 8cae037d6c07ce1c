package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"golang.org/x/sync/singleflight"
)

// HTTPClient は http(s) の参照画像を取得するためのクライアントです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// InputReader はローカルファイルや gs:// URI を開くためのリーダーです。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ImageCacher は取得済みの参照画像を保持するキャッシュです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// ErrNoReader は URL 以外の参照を開くリーダーが構成されていないことを示します。
var ErrNoReader = errors.New("ファイル参照を読み込むリーダーが設定されていません")

// ReferenceLoader はキャラクターの参照画像をデータURL、http(s)、gs://、ローカルパスから読み込みます。
type ReferenceLoader struct {
	httpClient HTTPClient
	reader     InputReader
	cache      ImageCacher
	cacheTTL   time.Duration
	group      singleflight.Group
}

// NewReferenceLoader は ReferenceLoader を生成します。reader と cache は nil でも構いません。
func NewReferenceLoader(httpClient HTTPClient, reader InputReader, cache ImageCacher, cacheTTL time.Duration) *ReferenceLoader {
	return &ReferenceLoader{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Load は参照を解決し、検証済みの参照画像を返します。
func (l *ReferenceLoader) Load(ctx context.Context, ref string) (*domain.ReferenceImage, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.NewValidationError("参照画像の指定が空です")
	}

	if domain.IsDataURL(ref) {
		mimeType, data, err := domain.DecodeDataURL(ref)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		return validated(data, mimeType)
	}

	if l.cache != nil {
		if v, ok := l.cache.Get(ref); ok {
			if img, ok := v.(domain.ReferenceImage); ok {
				return cloneImage(img), nil
			}
		}
	}

	v, err, _ := l.group.Do(ref, func() (any, error) {
		start := time.Now()
		data, err := l.fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("参照画像の取得に失敗しました (%s): %w", ref, err)
		}
		img, err := validated(data, "")
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			l.cache.Set(ref, *img, l.cacheTTL)
		}
		slog.DebugContext(ctx, "参照画像を取得しました",
			"ref", ref,
			"bytes", len(img.Data),
			"mime", img.MimeType,
			"elapsed", time.Since(start).Round(time.Millisecond))
		return *img, nil
	})
	if err != nil {
		return nil, err
	}

	img, ok := v.(domain.ReferenceImage)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	return cloneImage(img), nil
}

func (l *ReferenceLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if l.httpClient == nil {
			return nil, errors.New("HTTP クライアントが設定されていません")
		}
		return l.httpClient.FetchBytes(ctx, ref)
	}

	if l.reader == nil {
		return nil, ErrNoReader
	}
	rc, err := l.reader.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, domain.MaxReferenceImageSize+1))
}

func validated(data []byte, mimeType string) (*domain.ReferenceImage, error) {
	img := &domain.ReferenceImage{Data: data, MimeType: mimeType}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func cloneImage(img domain.ReferenceImage) *domain.ReferenceImage {
	img.Data = append([]byte(nil), img.Data...)
	return &img
}
