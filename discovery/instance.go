// Package discovery 定义运行中服务实例的数据模型及其生命周期事件。
package discovery

import (
	"fmt"
	"maps"
	"net"
	"strconv"

	"github.com/google/uuid"

	"github.com/ceyewan/pulse/xerrors"
)

// ServiceInstance 代表一个服务实例
type ServiceInstance struct {
	ID       string            `json:"id" msgpack:"id"`             // 唯一实例 ID (UUID)
	Name     string            `json:"name" msgpack:"name"`         // 服务名称 (如 user-service)
	Host     string            `json:"host" msgpack:"host"`         // 监听地址
	Port     int               `json:"port" msgpack:"port"`         // 监听端口
	Metadata map[string]string `json:"metadata" msgpack:"metadata"` // 元数据 (Region, Zone, Version 等)
}

// NewInstance 创建服务实例并生成随机 ID
func NewInstance(name, host string, port int, metadata map[string]string) (*ServiceInstance, error) {
	if name == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "service name is required")
	}
	if port < 0 || port > 65535 {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "port %d out of range", port)
	}
	return &ServiceInstance{
		ID:       uuid.NewString(),
		Name:     name,
		Host:     host,
		Port:     port,
		Metadata: maps.Clone(metadata),
	}, nil
}

// Address 返回 host:port 形式的地址
func (s *ServiceInstance) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// String 实现 fmt.Stringer
func (s *ServiceInstance) String() string {
	return fmt.Sprintf("%s[%s]@%s", s.Name, s.ID, s.Address())
}

// ServiceStartedEvent 服务开始接收请求时发布
type ServiceStartedEvent struct {
	Instance *ServiceInstance
}

// ServiceStoppedEvent 服务停止时发布
type ServiceStoppedEvent struct {
	Instance *ServiceInstance
}
