package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "key %s", "a"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrNotFound, "component %s", "embedded-server")
	if wrapped.Error() != "component embedded-server: not found" {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, CodeTickFailed); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(errors.New("provider down"), CodeTickFailed)
	if coded.Error() != "[TICK_FAILED] provider down" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}

	// 包装后依然能提取 code
	wrapped := Wrap(coded, "pulsate")
	if code := GetCode(wrapped); code != CodeTickFailed {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, CodeTickFailed)
	}
	if !HasCode(wrapped, CodeTickFailed) {
		t.Error("HasCode(wrapped, TICK_FAILED) = false，期望 true")
	}
	if HasCode(nil, CodeTickFailed) {
		t.Error("HasCode(nil) = true，期望 false")
	}
}

func TestConfigError(t *testing.T) {
	cause := errors.New(`time: invalid duration "abc"`)
	err := ConfigError("heartbeat.interval", cause)

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError 应满足 errors.Is(err, ErrInvalidInput)")
	}
	if !errors.Is(err, cause) {
		t.Error("ConfigError 应保留原始错误")
	}
	if GetCode(err) != CodeConfigInvalid {
		t.Errorf("GetCode = %q，期望 %q", GetCode(err), CodeConfigInvalid)
	}

	// cause 为空时仍为 ErrInvalidInput
	if err := ConfigError("k", nil); !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError(k, nil) 应满足 ErrInvalidInput")
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCombine(t *testing.T) {
	if err := Combine(); err != nil {
		t.Errorf("Combine() = %v，期望 nil", err)
	}
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1, nil); err != err1 {
		t.Errorf("Combine(nil, err1, nil) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if len(multi.Errors) != 2 {
		t.Errorf("multi.Errors 长度 = %d，期望 2", len(multi.Errors))
	}
	if combined.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("combined.Error() = %q", combined.Error())
	}
	if !errors.Is(combined, err1) || !errors.Is(combined, err2) {
		t.Error("errors.Is 应能匹配 MultiError 中的每个错误")
	}
}
