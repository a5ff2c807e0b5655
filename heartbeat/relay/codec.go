package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/pulse/heartbeat"
)

// 编码格式
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec 心跳消息编码器
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
	Name() string
}

type jsonCodec struct{}

func (jsonCodec) Marshal(value any) ([]byte, error)     { return json.Marshal(value) }
func (jsonCodec) Unmarshal(data []byte, dest any) error { return json.Unmarshal(data, dest) }
func (jsonCodec) Name() string                          { return CodecJSON }

type msgpackCodec struct{}

func (msgpackCodec) Marshal(value any) ([]byte, error)     { return msgpack.Marshal(value) }
func (msgpackCodec) Unmarshal(data []byte, dest any) error { return msgpack.Unmarshal(data, dest) }
func (msgpackCodec) Name() string                          { return CodecMsgpack }

// NewCodec 按名称创建编码器，空名称使用 JSON
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}

// Message 心跳在网络上的表示
type Message struct {
	ServiceID   string            `json:"service_id" msgpack:"service_id"`
	ServiceName string            `json:"service_name" msgpack:"service_name"`
	Host        string            `json:"host" msgpack:"host"`
	Port        int               `json:"port" msgpack:"port"`
	Metadata    map[string]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
	Status      string            `json:"status" msgpack:"status"`
	Description string            `json:"description,omitempty" msgpack:"description,omitempty"`
	Details     map[string]any    `json:"details,omitempty" msgpack:"details,omitempty"`
	Timestamp   time.Time         `json:"timestamp" msgpack:"timestamp"`
}

// FromEvent 将心跳事件转换为消息
func FromEvent(ev heartbeat.Event) Message {
	msg := Message{
		Status:      string(ev.Status.Status()),
		Description: ev.Status.Description(),
		Details:     ev.Status.Details(),
		Timestamp:   ev.At.UTC(),
	}
	if inst := ev.Instance; inst != nil {
		msg.ServiceID = inst.ID
		msg.ServiceName = inst.Name
		msg.Host = inst.Host
		msg.Port = inst.Port
		msg.Metadata = inst.Metadata
	}
	return msg
}
