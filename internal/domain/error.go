package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeNoVideosFound  = "no_videos_found"
	ErrCodeWriteFailed    = "write_failed"
	ErrCodeScanFailed     = "scan_failed"
	ErrCodePlayerNotFound = "player_not_found"
	ErrCodeLaunchFailed   = "launch_failed"
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeParseFailed    = "parse_failed"
)

// Error 是核心流程的结构化错误（带 error_code）。
// 上层只根据 Code 决定如何呈现，不解析 Error() 文本。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s：%q", e.Code, e.Path)
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
