package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"

	"voice-chat-go/internal/platform/config"
	platformerrors "voice-chat-go/internal/platform/errors"
	"voice-chat-go/internal/platform/logging"
)

// Proxy forwards one path prefix to a backend origin.
type Proxy struct {
	Rule   config.ProxyRule
	target *url.URL
	rp     *httputil.ReverseProxy
}

// NewProxy builds the reverse proxy for rule. With ChangeOrigin the upstream
// sees the target's Host and Origin instead of the dev server's.
func NewProxy(rule config.ProxyRule, logger *logging.Logger) (*Proxy, error) {
	target, err := url.Parse(rule.Target)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "proxy.new",
			fmt.Sprintf("invalid target %q for prefix %s", rule.Target, rule.Prefix))
	}
	targetOrigin := target.Scheme + "://" + target.Host

	p := &Proxy{Rule: rule, target: target}
	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if !rule.ChangeOrigin {
				pr.Out.Host = pr.In.Host
				return
			}
			if pr.In.Header.Get("Origin") != "" {
				pr.Out.Header.Set("Origin", targetOrigin)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnTag("代理", "%s %s -> %s 失败: %v", r.Method, r.URL.Path, targetOrigin, err)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(APIResponse{
				Success:   false,
				Message:   "upstream unavailable",
				Code:      http.StatusBadGateway,
				RequestID: w.Header().Get(RequestIDHeader),
			})
		},
	}
	return p, nil
}

// Target returns the backend origin.
func (p *Proxy) Target() *url.URL {
	u := *p.target
	return &u
}

// Handler adapts the proxy to gin. Upgrade requests are hijacked by the
// reverse proxy through gin's response writer.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.rp.ServeHTTP(c.Writer, c.Request)
	}
}
