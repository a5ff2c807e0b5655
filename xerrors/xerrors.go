// Package xerrors 提供 pulse 运行时统一的错误处理工具。
//
// 运行时内部的错误分为三类，分别用错误码标识：
//   - CodeConfigInvalid: 配置值格式错误（如非法的 duration），在激活阶段暴露
//   - CodeListenerFailed: 事件监听器执行失败，按监听器隔离
//   - CodeTickFailed: 定时任务单次执行失败，不影响后续调度
//
// 这些错误都不会导致进程退出。
package xerrors

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeListenerFailed = "LISTENER_FAILED"
	CodeTickFailed     = "TICK_FAILED"
)

// 通用哨兵错误
var (
	// ErrInvalidInput 输入或配置值无效
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
	// ErrClosed 组件已关闭
	ErrClosed = errors.New("closed")
)

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码，没有则返回空串。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode 判断错误链中是否带有指定错误码。
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

// ConfigError 构造配置错误：带 CodeConfigInvalid，且满足 Is(err, ErrInvalidInput)。
func ConfigError(key string, cause error) error {
	if cause == nil {
		cause = ErrInvalidInput
	} else if !errors.Is(cause, ErrInvalidInput) {
		cause = errors.Join(ErrInvalidInput, cause)
	}
	return WithCode(Wrapf(cause, "config key %q", key), CodeConfigInvalid)
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个，全部为 nil 时返回 nil。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
