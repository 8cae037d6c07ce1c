package domain

import "errors"

// ErrorKind は生成パイプラインにおける失敗の分類です。
type ErrorKind string

const (
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"
	KindEnhancementFailure    ErrorKind = "enhancement_failure"
	KindRenderFailure         ErrorKind = "render_failure"
	KindValidationFailure     ErrorKind = "validation_failure"
)

// Error は分類付きのエラーです。errors.Is は Kind が一致する番兵エラーに対して true を返します。
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrCapabilityUnavailable = &Error{Kind: KindCapabilityUnavailable, Message: "capability unavailable"}
	ErrEnhancementFailure    = &Error{Kind: KindEnhancementFailure, Message: "prompt enhancement failed"}
	ErrRenderFailure         = &Error{Kind: KindRenderFailure, Message: "image rendering failed"}
	ErrValidationFailure     = &Error{Kind: KindValidationFailure, Message: "validation failed"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は Kind の一致で判定します。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewEnhancementError はプロンプト拡張の失敗を表すエラーを生成します。
func NewEnhancementError(err error) error {
	return &Error{Kind: KindEnhancementFailure, Message: ErrEnhancementFailure.Message, Err: err}
}

// NewRenderError は画像生成の失敗を表すエラーを生成します。
func NewRenderError(err error) error {
	return &Error{Kind: KindRenderFailure, Message: ErrRenderFailure.Message, Err: err}
}

// NewValidationError は入力検証の失敗を表すエラーを生成します。
func NewValidationError(msg string) error {
	return &Error{Kind: KindValidationFailure, Message: msg}
}

// KindOf は err の分類を返します。分類のないエラーの場合は空文字です。
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
