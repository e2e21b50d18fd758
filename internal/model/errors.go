package model

import "errors"

// 业务层共享的哨兵错误，handler 通过 errors.Is 映射为 HTTP 状态码。
var (
	ErrNotFound     = errors.New("resource not found")
	ErrAccessDenied = errors.New("access denied")
	ErrValidation   = errors.New("validation failed")
	ErrNotReady     = errors.New("document text not ready")
	ErrConflict     = errors.New("operation already in progress")
)
