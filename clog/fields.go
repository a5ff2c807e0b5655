package clog

import (
	"log/slog"
	"time"

	"github.com/ceyewan/pulse/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

func String(k, v string) Field { return slog.String(k, v) }

func Int(k string, v int) Field { return slog.Int(k, v) }

func Int64(k string, v int64) Field { return slog.Int64(k, v) }

func Bool(k string, v bool) Field { return slog.Bool(k, v) }

func Float64(k string, v float64) Field { return slog.Float64(k, v) }

func Time(k string, v time.Time) Field { return slog.Time(k, v) }

func Duration(k string, v time.Duration) Field { return slog.Duration(k, v) }

func Any(k string, v any) Field { return slog.Any(k, v) }

// Error 错误字段，只输出错误消息：err_msg="..."
//
// 错误链中带有 xerrors 错误码时，额外输出 err_code。
func Error(err error) Field {
	if err == nil {
		return slog.String("", "")
	}
	if code := xerrors.GetCode(err); code != "" {
		return slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("code", code),
		)
	}
	return slog.String("err_msg", err.Error())
}
