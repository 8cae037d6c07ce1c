package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const dataURLPrefix = "data:"

// ErrNotDataURL は文字列が base64 形式のデータURLではないことを示します。
var ErrNotDataURL = errors.New("base64 形式のデータURLではありません")

// EncodeDataURL はバイト列を data:<mime>;base64,<payload> 形式に変換します。
func EncodeDataURL(mimeType string, data []byte) string {
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL はデータURL形式の文字列かどうかを返します。
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, dataURLPrefix)
}

// DecodeDataURL はデータURLから MIME タイプとバイト列を取り出します。
func DecodeDataURL(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, dataURLPrefix), ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("データURLのデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}
