package httptransport

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-chat-go/internal/domain/auth"
	"voice-chat-go/internal/domain/eventbus"
	"voice-chat-go/internal/domain/navigation"
	"voice-chat-go/internal/platform/logging"
)

// spaHandler answers history-mode paths the way the client router would:
// guarded routes without a token go to /login, known routes get the app
// shell, everything else gets the shell with a 404.
type spaHandler struct {
	routes    *navigation.Table
	bus       eventbus.Bus
	staticDir string
	logger    *logging.Logger
}

// RequestToken extracts the bearer token of a browser request: the token
// cookie first, then an Authorization header.
func RequestToken(r *http.Request) string {
	if ck, err := r.Cookie(auth.TokenKey); err == nil && ck.Value != "" {
		return ck.Value
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (h *spaHandler) serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		RespondError(c, http.StatusNotFound, "not found", nil)
		return
	}

	token := RequestToken(c.Request)
	nav := navigation.NewNavigator(h.routes, h.bus,
		navigation.AuthGuard(navigation.TokenFunc(func() string { return token }), navigation.LoginPath))

	dest, err := nav.Navigate(c.Request.URL.Path)
	if err != nil {
		h.logger.ErrorTag("导航", "解析 %s 失败: %v", c.Request.URL.Path, err)
		RespondError(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if dest.Path != dest.Requested {
		c.Redirect(http.StatusFound, dest.Path)
		return
	}

	status := http.StatusOK
	if dest.NotFound {
		status = http.StatusNotFound
	}
	c.Data(status, "text/html; charset=utf-8", h.shell(dest.Route.View))
}

// shell returns index.html from the static dir, or a minimal page naming the
// view when no build is present.
func (h *spaHandler) shell(view string) []byte {
	if h.staticDir != "" {
		body, err := os.ReadFile(filepath.Join(h.staticDir, "index.html"))
		if err == nil {
			return body
		}
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnTag("HTTP", "读取 index.html 失败: %v", err)
		}
	}
	v := html.EscapeString(view)
	return []byte(fmt.Sprintf("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head>"+
		"<body><div id=\"app\" data-view=\"%s\"></div></body></html>\n", v, v))
}
