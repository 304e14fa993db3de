package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-chat-go/internal/domain/auth"
	platformerrors "voice-chat-go/internal/platform/errors"
	platformtesting "voice-chat-go/internal/platform/testing"
)

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voicechat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"eventbus:init",
		"storage:init-database",
		"storage:init-token-store",
		"auth:init-session",
		"navigation:init-router",
	}
	require.Len(t, steps, len(want))
	for i, step := range steps {
		assert.Equal(t, want[i], step.ID)
	}
}

func TestExecuteInitStepsChecksDependencies(t *testing.T) {
	steps := []initStep{{
		ID:        "b",
		DependsOn: []string{"a"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{app: &App{}})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindBootstrap))

	steps = []initStep{{ID: "a", Kind: platformerrors.KindStorage, Execute: func(context.Context, *appState) error {
		return fmt.Errorf("disk gone")
	}}}
	err = executeInitSteps(context.Background(), steps, &appState{app: &App{}})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))
}

func TestInitDrivers(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	drivers := map[string]string{
		"memory": "storage:\n  driver: memory\n",
		"file":   fmt.Sprintf("storage:\n  driver: file\n  file:\n    path: %s\n", filepath.Join(dir, "storage.json")),
		"sqlite": fmt.Sprintf("storage:\n  driver: sqlite\n  sqlite:\n    dsn: %s\n", filepath.Join(dir, "voicechat.db")),
		"redis":  fmt.Sprintf("storage:\n  driver: redis\n  redis:\n    addr: %s\n", mr.Addr()),
	}

	for name, body := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			app, err := Init(ctx, Options{ConfigPath: writeConfig(t, body), Env: envFrom(nil), Console: io.Discard})
			require.NoError(t, err)
			defer app.Close(ctx)

			assert.Equal(t, name, app.Config.Storage.Driver)
			assert.False(t, app.Session.IsAuthenticated())

			require.NoError(t, app.Storage.Set(ctx, auth.TokenKey, "persisted"))
			dest, err := app.Navigator.Navigate("/chats")
			require.NoError(t, err)
			assert.Equal(t, "/login", dest.Path)
		})
	}
}

func TestInitRestoresPersistedToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	cfg := writeConfig(t, fmt.Sprintf("storage:\n  driver: file\n  file:\n    path: %s\n", path))

	app, err := Init(ctx, Options{ConfigPath: cfg, Env: envFrom(nil), Console: io.Discard})
	require.NoError(t, err)
	require.NoError(t, app.Storage.Set(ctx, auth.TokenKey, "persisted"))
	require.NoError(t, app.Close(ctx))

	app, err = Init(ctx, Options{ConfigPath: cfg, Env: envFrom(nil), Console: io.Discard})
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.Equal(t, "persisted", app.Session.Token())
	dest, err := app.Navigator.Navigate("/me")
	require.NoError(t, err)
	assert.Equal(t, "/me", dest.Path)
}

func TestInitFailsOnBadConfig(t *testing.T) {
	_, err := Init(context.Background(), Options{
		ConfigPath: writeConfig(t, "backend:\n  base_url: not-a-url\n"),
		Env:        envFrom(nil),
		Console:    io.Discard,
	})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))

	_, err = Init(context.Background(), Options{
		ConfigPath: writeConfig(t, "storage:\n  driver: floppy\n"),
		Env:        envFrom(nil),
		Console:    io.Discard,
	})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))
}

func TestServeUntilCancelled(t *testing.T) {
	logs := &platformtesting.LogBuffer{}
	app, err := Init(context.Background(), Options{
		ConfigPath: writeConfig(t, "storage:\n  driver: memory\n"),
		Env:        envFrom(nil),
		Console:    logs,
	})
	require.NoError(t, err)
	defer app.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, app, ServeOptions{
			Listen:  "127.0.0.1:0",
			OnReady: func(addr net.Addr) { ready <- addr },
		})
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get("http://" + addr.String() + "/chats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Contains(t, logs.String(), "[HTTP] GET /chats -> 302")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeListenError(t *testing.T) {
	app, err := Init(context.Background(), Options{
		ConfigPath: writeConfig(t, "storage:\n  driver: memory\n"),
		Env:        envFrom(nil),
		Console:    io.Discard,
	})
	require.NoError(t, err)
	defer app.Close(context.Background())

	err = Serve(context.Background(), app, ServeOptions{Listen: "256.0.0.1:99999"})
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindTransport))
}
