package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Logger is the logging contract the audit handlers need.
type Logger interface {
	InfoTag(tag, msg string, args ...any)
}

// SetupAuditHandlers subscribes log lines for session and navigation events.
func SetupAuditHandlers(bus evbus.Bus, logger Logger) error {
	if err := bus.Subscribe(EventSessionLogin, func(data SessionEventData) {
		logger.InfoTag("认证", "登录成功 user=%s", data.Username)
	}); err != nil {
		return err
	}
	if err := bus.Subscribe(EventSessionLogout, func(data SessionEventData) {
		logger.InfoTag("认证", "已退出登录")
	}); err != nil {
		return err
	}
	return bus.Subscribe(EventNavigationRedirect, func(data NavigationEventData) {
		logger.InfoTag("导航", "重定向 %s -> %s", data.From, data.To)
	})
}
