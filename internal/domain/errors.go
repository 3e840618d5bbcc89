package domain

import (
	"errors"
	"fmt"
)

// 对外稳定的 error_code。文案可以变，code 不允许变。
const (
	ErrCodeConfigCorrupt  = "config_corrupt"
	ErrCodeConfigIO       = "config_io_error"
	ErrCodeScanIO         = "scan_io_error"
	ErrCodeHeaderParse    = "header_parse_error"
	ErrCodeEncoderMissing = "encoder_missing"
	ErrCodeProbe          = "probe_error"
	ErrCodePath           = "path_error"
	ErrCodeSpawn          = "spawn_error"
	ErrCodeProcess        = "process_error"
	ErrCodeDelete         = "delete_error"
	ErrCodeBusy           = "busy"
	ErrCodeCancelled      = "cancelled"
)

// Error 是引擎的结构化错误（带 error_code，可选携带路径）。
//
// 约束：facade 对外不 panic，不跨 API 抛异常；同步操作以返回值暴露，
// 任务型操作以终态事件暴露（见 Event）。
type Error struct {
	Code string
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s：%s（%s）：%v", e.Code, e.Msg, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s：%s（%s）", e.Code, e.Msg, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s：%s：%v", e.Code, e.Msg, e.Err)
	default:
		return fmt.Sprintf("%s：%s", e.Code, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError 构造结构化错误。msg 是面向用户的一句话说明。
func NewError(code, msg string) *Error { return &Error{Code: code, Msg: msg} }

// NewPathError 构造携带路径的结构化错误。
func NewPathError(code, msg, path string, err error) *Error {
	return &Error{Code: code, Msg: msg, Path: path, Err: err}
}

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
