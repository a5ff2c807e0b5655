package scheduler

import (
	"time"

	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/xerrors"
)

// Spec 调度参数
type Spec struct {
	InitialDelay time.Duration
	Period       time.Duration
}

// Validate 校验时长非负
func (s Spec) Validate() error {
	if s.InitialDelay < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "negative initial delay %s", s.InitialDelay)
	}
	if s.Period < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "negative period %s", s.Period)
	}
	return nil
}

// ResolveSpec 从配置解析调度参数
//
// 值缺失时使用默认值；格式非法或为负时返回 CodeConfigInvalid 错误。
func ResolveSpec(r config.Resolver, periodKey string, periodDefault time.Duration, delayKey string, delayDefault time.Duration) (Spec, error) {
	period, err := r.Duration(periodKey, periodDefault)
	if err != nil {
		return Spec{}, err
	}
	if period < 0 {
		return Spec{}, xerrors.ConfigError(periodKey, xerrors.Wrapf(xerrors.ErrInvalidInput, "negative duration %s", period))
	}

	delay, err := r.Duration(delayKey, delayDefault)
	if err != nil {
		return Spec{}, err
	}
	if delay < 0 {
		return Spec{}, xerrors.ConfigError(delayKey, xerrors.Wrapf(xerrors.ErrInvalidInput, "negative duration %s", delay))
	}

	return Spec{InitialDelay: delay, Period: period}, nil
}

// ScheduleSpec 按 Spec 注册调度
func (s *Scheduler) ScheduleSpec(name string, action Action, spec Spec) (*Handle, error) {
	return s.Schedule(name, action, spec.InitialDelay, spec.Period)
}
