package httptransport

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voice-chat-go/internal/domain/eventbus"
	"voice-chat-go/internal/domain/navigation"
	"voice-chat-go/internal/platform/config"
	"voice-chat-go/internal/platform/logging"
)

// RequestIDHeader carries the per-request id set by the dev server.
const RequestIDHeader = "X-Request-Id"

// DevRoutesPath lists the client route table as JSON.
const DevRoutesPath = "/__dev/routes"

// Options configures the HTTP router builder.
type Options struct {
	Dev    config.DevConfig
	Logger *logging.Logger
	// Routes resolves history-mode paths; defaults to the client route table.
	Routes *navigation.Table
	Bus    eventbus.Bus
	Debug  bool
}

// Router bundles together the gin engine and the configured proxies.
type Router struct {
	Engine  *gin.Engine
	Proxies []*Proxy
}

// Build constructs the dev server engine: request id, logging, host check,
// CORS, prefix proxies, static assets and the SPA fallback.
func Build(opts Options) (*Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	routes := opts.Routes
	if routes == nil {
		routes = navigation.DefaultTable()
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(loggingMiddleware(logger))
	engine.Use(allowedHostsMiddleware(opts.Dev.AllowedHosts))

	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			RequestIDHeader,
		},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	r := &Router{Engine: engine}
	for _, rule := range opts.Dev.Proxy {
		p, err := NewProxy(rule, logger)
		if err != nil {
			return nil, err
		}
		prefix := strings.TrimSuffix(rule.Prefix, "/")
		if prefix == "" {
			return nil, fmt.Errorf("proxy prefix %q would shadow every route", rule.Prefix)
		}
		engine.Any(prefix, p.Handler())
		engine.Any(prefix+"/*proxyPath", p.Handler())
		r.Proxies = append(r.Proxies, p)
		logger.InfoTag("代理", "%s -> %s (change_origin=%t)", prefix, rule.Target, rule.ChangeOrigin)
	}

	engine.GET(DevRoutesPath, func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, routes.Routes(), "")
	})

	spa := &spaHandler{
		routes:    routes,
		bus:       opts.Bus,
		staticDir: opts.Dev.StaticDir,
		logger:    logger,
	}
	var assets gin.HandlerFunc
	if opts.Dev.StaticDir != "" {
		assets = static.Serve("/", static.LocalFile(opts.Dev.StaticDir, false))
	}
	engine.NoRoute(func(c *gin.Context) {
		// 带扩展名的路径视为静态资源，其余交给前端路由
		if assets != nil && path.Ext(c.Request.URL.Path) != "" {
			assets(c)
			if c.IsAborted() || c.Writer.Written() {
				return
			}
		}
		spa.serve(c)
	})

	return r, nil
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		if logger == nil {
			return
		}
		logFn := logger.Info
		if status >= http.StatusInternalServerError {
			logFn = logger.Warn
		}
		logFn(
			"[HTTP] %s %s -> %d (%s) id=%s",
			c.Request.Method,
			c.Request.URL.Path,
			status,
			logging.Since(start),
			c.GetString("request_id"),
		)
	}
}
