package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"voice-chat-go/internal/domain/auth"
	authstore "voice-chat-go/internal/domain/auth/store"
	"voice-chat-go/internal/domain/eventbus"
	"voice-chat-go/internal/domain/navigation"
	platformconfig "voice-chat-go/internal/platform/config"
	platformerrors "voice-chat-go/internal/platform/errors"
	platformlogging "voice-chat-go/internal/platform/logging"
	platformstorage "voice-chat-go/internal/platform/storage"
	httptransport "voice-chat-go/internal/transport/http"
)

// Options controls how the client runtime is assembled.
type Options struct {
	// ConfigPath pins the YAML file; empty uses VOICECHAT_CONFIG or ./voicechat.yaml.
	ConfigPath string
	// DotEnv preloads ./.env into the process environment.
	DotEnv bool
	// Env replaces os.LookupEnv for overrides (tests).
	Env func(string) (string, bool)
	// Console receives the text log; defaults to stdout.
	Console io.Writer
}

// App is the assembled client runtime shared by the CLI commands.
type App struct {
	Config     *platformconfig.Config
	ConfigPath string
	Logger     *platformlogging.Logger
	Bus        evbus.Bus
	Storage    authstore.Storage
	Session    *auth.Session
	Navigator  *navigation.Navigator

	db *gorm.DB
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts Options
	app  *App
}

// Init runs the init graph and returns the ready runtime. The caller owns
// the result and must Close it.
func Init(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts, app: &App{}}
	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		_ = state.app.Close(context.Background())
		return nil, err
	}
	logBootstrapGraph(steps, state.app.Logger)
	return state.app, nil
}

// Close releases storage handles and the log file.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Storage != nil {
		if err := a.Storage.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.db != nil {
		if err := platformstorage.Close(a.db); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	for _, step := range steps {
		logger.DebugTag("引导", "%s 完成 (%s)", step.ID, step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the init steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "storage:init-token-store",
			Title:     "Initialise token storage",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initTokenStoreStep,
		},
		{
			ID:        "auth:init-session",
			Title:     "Initialise auth session",
			DependsOn: []string{"storage:init-token-store", "eventbus:init"},
			Kind:      platformerrors.KindAuth,
			Execute:   initSessionStep,
		},
		{
			ID:        "navigation:init-router",
			Title:     "Initialise route table",
			DependsOn: []string{"auth:init-session"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initNavigationStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader().WithDotEnv(state.opts.DotEnv)
	if state.opts.ConfigPath != "" {
		loader = loader.WithPath(state.opts.ConfigPath)
	}
	if state.opts.Env != nil {
		loader = loader.WithEnv(state.opts.Env)
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.app.Config = result.Config
	state.app.ConfigPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.Log
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    cfg.Level,
		Dir:      cfg.Dir,
		Filename: cfg.File,
		Console:  state.opts.Console,
	})
	if err != nil {
		return err
	}
	state.app.Logger = logger
	logger.DebugTag("引导", "配置来源: %s", state.app.ConfigPath)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New()
	if err := eventbus.SetupAuditHandlers(bus, state.app.Logger); err != nil {
		return err
	}
	state.app.Bus = bus
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.Storage
	if cfg.Driver != authstore.DriverSQLite {
		return nil
	}
	db, err := platformstorage.OpenSQLite(cfg.SQLite.DSN)
	if err != nil {
		return err
	}
	state.app.db = db
	state.app.Logger.DebugTag("存储", "SQLite 已就绪: %s", cfg.SQLite.DSN)
	return nil
}

func initTokenStoreStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.Storage
	s, err := authstore.New(authstore.Config{
		Driver: cfg.Driver,
		File:   &authstore.FileConfig{Path: cfg.File.Path},
		SQLite: &authstore.SQLiteConfig{DSN: cfg.SQLite.DSN},
		Redis: &authstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, authstore.Dependencies{SQLiteDB: state.app.db})
	if err != nil {
		return err
	}
	state.app.Storage = s
	state.app.Logger.DebugTag("存储", "令牌存储驱动: %s", cfg.Driver)
	return nil
}

func initSessionStep(ctx context.Context, state *appState) error {
	backend := state.app.Config.Backend
	client := auth.NewClient(auth.ClientConfig{
		BaseURL:   backend.BaseURL,
		TokenPath: backend.TokenPath,
		Timeout:   backend.Timeout,
	})
	session, err := auth.NewSession(ctx, auth.Options{
		Storage: state.app.Storage,
		Client:  client,
		Logger:  state.app.Logger,
		Bus:     state.app.Bus,
	})
	if err != nil {
		return err
	}
	state.app.Session = session
	return nil
}

func initNavigationStep(_ context.Context, state *appState) error {
	table, err := navigation.NewTable(navigation.DefaultRoutes())
	if err != nil {
		return err
	}
	state.app.Navigator = navigation.NewNavigator(
		table,
		state.app.Bus,
		navigation.AuthGuard(state.app.Session, navigation.LoginPath),
	)
	return nil
}

// ServeOptions tunes the dev server.
type ServeOptions struct {
	// Listen overrides dev.listen.
	Listen string
	// OnReady is called with the bound address once the listener is open.
	OnReady func(addr net.Addr)
}

// Serve runs the dev proxy server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts it down gracefully.
func Serve(ctx context.Context, app *App, opts ServeOptions) error {
	if app == nil || app.Config == nil || app.Logger == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "bootstrap serve", "app not initialised")
	}
	logger := app.Logger

	dev := app.Config.Dev
	if opts.Listen != "" {
		dev.Listen = opts.Listen
	}

	router, err := httptransport.Build(httptransport.Options{
		Dev:    dev,
		Logger: logger,
		Routes: app.Navigator.Table(),
		Bus:    app.Bus,
		Debug:  platformlogging.ParseLevel(app.Config.Log.Level) == slog.LevelDebug,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build dev server", err)
	}

	ln, err := net.Listen("tcp", dev.Listen)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "failed to listen on "+dev.Listen, err)
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(rootCtx)

	// 服务异常退出时 groupCtx 也会结束等待
	signalCtx, stop := signal.NotifyContext(groupCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		logger.InfoTag("HTTP", "开发服务器已启动，访问地址 http://%s", ln.Addr())
		if opts.OnReady != nil {
			opts.OnReady(ln.Addr())
		}

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到退出信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}
