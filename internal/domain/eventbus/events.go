package eventbus

import "time"

// 事件类型定义
const (
	// 会话相关事件
	EventSessionLogin  = "session:login"
	EventSessionLogout = "session:logout"

	// 导航相关事件
	EventNavigationRedirect = "navigation:redirect"
)

// SessionEventData 会话事件数据
type SessionEventData struct {
	Username string
	At       time.Time
}

// NavigationEventData 导航重定向事件数据
type NavigationEventData struct {
	From string
	To   string
}
