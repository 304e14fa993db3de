package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat-go/internal/platform/config"
	platformtesting "voice-chat-go/internal/platform/testing"
)

type seenRequest struct {
	Host          string
	Path          string
	Origin        string
	ForwardedFor  string
	ForwardedHost string
}

func newUpstream(t *testing.T) (*httptest.Server, chan seenRequest) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	seen := make(chan seenRequest, 8)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), msg...)); err != nil {
				return
			}
		}
	})
	r.NoRoute(func(c *gin.Context) {
		seen <- seenRequest{
			Host:          c.Request.Host,
			Path:          c.Request.URL.Path,
			Origin:        c.GetHeader("Origin"),
			ForwardedFor:  c.GetHeader("X-Forwarded-For"),
			ForwardedHost: c.GetHeader("X-Forwarded-Host"),
		}
		c.JSON(http.StatusOK, gin.H{"access_token": "abc"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, seen
}

func buildRouter(t *testing.T, dev config.DevConfig) *gin.Engine {
	t.Helper()
	r, err := Build(Options{Dev: dev})
	require.NoError(t, err)
	return r.Engine
}

func devConfig(target string, changeOrigin bool) config.DevConfig {
	return config.DevConfig{
		AllowedHosts: []string{"*"},
		Proxy: []config.ProxyRule{
			{Prefix: "/api", Target: target, ChangeOrigin: changeOrigin},
			{Prefix: "/static", Target: target, ChangeOrigin: changeOrigin},
		},
	}
}

func TestProxyChangeOrigin(t *testing.T) {
	upstream, seen := newUpstream(t)
	engine := buildRouter(t, devConfig(upstream.URL, true))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader("username=admin&password=admin"))
	req.Host = "devbox:5173"
	req.Header.Set("Origin", "http://devbox:5173")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access_token":"abc"}`, w.Body.String())

	got := <-seen
	upstreamHost := strings.TrimPrefix(upstream.URL, "http://")
	assert.Equal(t, "/api/v1/auth/token", got.Path)
	assert.Equal(t, upstreamHost, got.Host)
	assert.Equal(t, upstream.URL, got.Origin)
	assert.Equal(t, "devbox:5173", got.ForwardedHost)
	assert.NotEmpty(t, got.ForwardedFor)
}

func TestProxyKeepsHostWithoutChangeOrigin(t *testing.T) {
	upstream, seen := newUpstream(t)
	engine := buildRouter(t, devConfig(upstream.URL, false))

	req := httptest.NewRequest(http.MethodGet, "/static/avatars/a.png", nil)
	req.Host = "devbox:5173"
	req.Header.Set("Origin", "http://devbox:5173")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	got := <-seen
	assert.Equal(t, "/static/avatars/a.png", got.Path)
	assert.Equal(t, "devbox:5173", got.Host)
	assert.Equal(t, "http://devbox:5173", got.Origin)
}

func TestProxyBarePrefix(t *testing.T) {
	upstream, seen := newUpstream(t)
	engine := buildRouter(t, devConfig(upstream.URL, true))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api", (<-seen).Path)
}

func TestProxyUpstreamDown(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	engine := buildRouter(t, devConfig(down.URL, true))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/personas", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, w.Header().Get(RequestIDHeader), body.RequestID)
	assert.NotEmpty(t, body.RequestID)
}

func TestProxyWebsocketPassthrough(t *testing.T) {
	upstream, _ := newUpstream(t)
	dev := httptest.NewServer(buildRouter(t, devConfig(upstream.URL, true)))
	defer dev.Close()

	wsURL := "ws" + strings.TrimPrefix(dev.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(msg))
}

func TestBuildRejectsBadProxy(t *testing.T) {
	_, err := Build(Options{Dev: config.DevConfig{Proxy: []config.ProxyRule{{Prefix: "/api", Target: "localhost"}}}})
	assert.Error(t, err)

	_, err = Build(Options{Dev: config.DevConfig{Proxy: []config.ProxyRule{{Prefix: "/", Target: "http://localhost:8002"}}}})
	assert.Error(t, err)
}

func TestHostAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		host    string
		want    bool
	}{
		{[]string{"*"}, "anything.example.com:5173", true},
		{nil, "localhost:5173", true},
		{nil, "127.0.0.1:5173", true},
		{nil, "[::1]:5173", true},
		{nil, "chat.example.com", false},
		{[]string{"chat.example.com"}, "chat.example.com:443", true},
		{[]string{"chat.example.com"}, "CHAT.example.com", true},
		{[]string{"chat.example.com"}, "api.chat.example.com", false},
		{[]string{".example.com"}, "api.chat.example.com", true},
		{[]string{".example.com"}, "example.com", true},
		{[]string{".example.com"}, "badexample.com", false},
		{[]string{"*"}, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostAllowed(tt.allowed, tt.host), "%v %q", tt.allowed, tt.host)
	}
}

func TestAllowedHostsMiddlewareBlocks(t *testing.T) {
	engine := buildRouter(t, config.DevConfig{AllowedHosts: []string{".voicechat.dev"}})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Host = "evil.example.com"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Host = "app.voicechat.dev"
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	engine := buildRouter(t, config.DevConfig{AllowedHosts: []string{"*"}})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestSPAFallback(t *testing.T) {
	engine := buildRouter(t, config.DevConfig{AllowedHosts: []string{"*"}})

	tests := []struct {
		name     string
		path     string
		token    string
		bearer   bool
		status   int
		location string
		view     string
	}{
		{name: "protected without token", path: "/chats", status: http.StatusFound, location: "/login"},
		{name: "param route without token", path: "/chat/9", status: http.StatusFound, location: "/login"},
		{name: "root without token", path: "/", status: http.StatusFound, location: "/login"},
		{name: "root with token", path: "/", token: "abc", status: http.StatusFound, location: "/chats"},
		{name: "cookie token", path: "/contacts", token: "abc", status: http.StatusOK, view: "Contacts"},
		{name: "bearer token", path: "/personas/new", token: "abc", bearer: true, status: http.StatusOK, view: "PersonaCreate"},
		{name: "public", path: "/login", status: http.StatusOK, view: "Login"},
		{name: "unknown", path: "/nowhere", status: http.StatusNotFound, view: "NotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				if tt.bearer {
					req.Header.Set("Authorization", "Bearer "+tt.token)
				} else {
					req.AddCookie(&http.Cookie{Name: "token", Value: tt.token})
				}
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			if tt.view != "" {
				assert.Contains(t, w.Body.String(), `data-view="`+tt.view+`"`)
			}
		})
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSPAServesBuildOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	engine := buildRouter(t, config.DevConfig{AllowedHosts: []string{"*"}, StaticDir: dir})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>shell</html>", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDevRoutesEndpoint(t *testing.T) {
	engine := buildRouter(t, config.DevConfig{AllowedHosts: []string{"*"}})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, DevRoutesPath, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			Path         string `json:"path"`
			RequiresAuth bool   `json:"requiresAuth"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data)
	assert.Equal(t, "/login", body.Data[0].Path)
}

func TestRequestToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestToken(req))

	req.Header.Set("Authorization", "bearer xyz")
	assert.Equal(t, "xyz", RequestToken(req))

	req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", RequestToken(req))
}

func TestDefaultDevConfigLogsTraffic(t *testing.T) {
	upstream, seen := newUpstream(t)
	cfg := platformtesting.SetupTestConfig(t)
	for i := range cfg.Dev.Proxy {
		cfg.Dev.Proxy[i].Target = upstream.URL
	}
	logger, logs := platformtesting.SetupTestLogger(t)

	r, err := Build(Options{Dev: cfg.Dev, Logger: logger})
	require.NoError(t, err)
	require.Len(t, r.Proxies, 2)
	assert.Equal(t, upstream.URL, "http://"+r.Proxies[0].Target().Host)

	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/x.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	<-seen

	out := logs.String()
	assert.Contains(t, out, "[代理] /api -> "+upstream.URL)
	assert.Contains(t, out, "[代理] /static -> "+upstream.URL)
	assert.Contains(t, out, "[HTTP] GET /static/x.png -> 200")
}
