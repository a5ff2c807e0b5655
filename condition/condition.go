// Package condition 提供组件激活条件的声明与求值。
//
// 条件只在激活时求值一次，输入为配置解析器和组件注册表：
//
//	cond := condition.All(
//		condition.Property("heartbeat.enabled", "true", "true"),
//		condition.PropertyPresent("application.name"),
//		condition.ComponentPresent("embedded-server"),
//	)
//	ok, err := cond.Evaluate(resolver, registry)
//
// 条件不满足返回 (false, nil)；解析配置失败返回 (false, err)，err 带有条件名。
package condition

import (
	"fmt"
	"strings"

	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/container"
	"github.com/ceyewan/pulse/xerrors"
)

// Condition 激活条件
type Condition interface {
	// Name 返回用于日志和错误信息的可读名称
	Name() string
	// Evaluate 求值，registry 可以为 nil，此时组件类条件视为不满足
	Evaluate(r config.Resolver, registry container.Registry) (bool, error)
}

// Property 要求 key 的值（缺省时取 def）与 expected 完全相等
//
// 比较按字符串进行，不做大小写或空白归一；YAML 布尔值 true 的文本形式为 "true"。
func Property(key, expected, def string) Condition {
	return &propertyCondition{key: key, expected: expected, def: def}
}

type propertyCondition struct {
	key, expected, def string
}

func (c *propertyCondition) Name() string {
	return fmt.Sprintf("property(%s=%s, default=%s)", c.key, c.expected, c.def)
}

func (c *propertyCondition) Evaluate(r config.Resolver, _ container.Registry) (bool, error) {
	if r == nil {
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "%s: resolver is nil", c.Name())
	}
	return r.String(c.key, c.def) == c.expected, nil
}

// PropertyPresent 要求 key 存在，任意值均可（包括空串）
func PropertyPresent(key string) Condition {
	return &presentCondition{key: key}
}

type presentCondition struct {
	key string
}

func (c *presentCondition) Name() string {
	return fmt.Sprintf("present(%s)", c.key)
}

func (c *presentCondition) Evaluate(r config.Resolver, _ container.Registry) (bool, error) {
	if r == nil {
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "%s: resolver is nil", c.Name())
	}
	_, ok := r.Lookup(c.key)
	return ok, nil
}

// ComponentPresent 要求注册表中存在名为 name 的组件
func ComponentPresent(name string) Condition {
	return &componentCondition{name: name}
}

type componentCondition struct {
	name string
}

func (c *componentCondition) Name() string {
	return fmt.Sprintf("component(%s)", c.name)
}

func (c *componentCondition) Evaluate(_ config.Resolver, registry container.Registry) (bool, error) {
	if registry == nil {
		return false, nil
	}
	return registry.Has(c.name), nil
}

// All 所有条件同时满足，遇到第一个不满足或出错的条件即返回；空列表视为满足
func All(conds ...Condition) Condition {
	return &allCondition{conds: conds}
}

type allCondition struct {
	conds []Condition
}

func (c *allCondition) Name() string {
	names := make([]string, len(c.conds))
	for i, cond := range c.conds {
		names[i] = cond.Name()
	}
	return "all(" + strings.Join(names, ", ") + ")"
}

func (c *allCondition) Evaluate(r config.Resolver, registry container.Registry) (bool, error) {
	for _, cond := range c.conds {
		ok, err := cond.Evaluate(r, registry)
		if err != nil {
			return false, xerrors.Wrapf(err, "condition %s", cond.Name())
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Func 以函数形式定义条件
func Func(name string, fn func(config.Resolver, container.Registry) (bool, error)) Condition {
	return &funcCondition{name: name, fn: fn}
}

type funcCondition struct {
	name string
	fn   func(config.Resolver, container.Registry) (bool, error)
}

func (c *funcCondition) Name() string { return c.name }

func (c *funcCondition) Evaluate(r config.Resolver, registry container.Registry) (bool, error) {
	return c.fn(r, registry)
}

// FirstUnmet 返回第一个不满足的条件名，全部满足时返回空串
//
// 对 All 会展开到具体成员，便于日志说明激活失败的原因。
func FirstUnmet(cond Condition, r config.Resolver, registry container.Registry) (string, error) {
	if all, ok := cond.(*allCondition); ok {
		for _, member := range all.conds {
			name, err := FirstUnmet(member, r, registry)
			if err != nil || name != "" {
				return name, err
			}
		}
		return "", nil
	}
	ok, err := cond.Evaluate(r, registry)
	if err != nil {
		return cond.Name(), xerrors.Wrapf(err, "condition %s", cond.Name())
	}
	if !ok {
		return cond.Name(), nil
	}
	return "", nil
}

// Describe 返回条件的可读描述
func Describe(cond Condition) string {
	if cond == nil {
		return "<nil>"
	}
	return cond.Name()
}
