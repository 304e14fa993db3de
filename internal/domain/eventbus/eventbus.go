package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus is the subset of the event bus publishers depend on.
type Bus interface {
	Publish(topic string, args ...interface{})
}

// New 创建新的同步事件总线
func New() evbus.Bus {
	return evbus.New()
}

// Publish publishes on bus when one is configured.
func Publish(bus Bus, topic string, args ...interface{}) {
	if bus == nil {
		return
	}
	bus.Publish(topic, args...)
}
