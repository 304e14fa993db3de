package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/v1/auth/token", func(c *gin.Context) {
		if c.PostForm("username") == "admin" && c.PostForm("password") == "admin" {
			c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeConfig(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`backend:
  base_url: %s
  timeout: 5s
storage:
  driver: file
  file:
    path: %s
log:
  log_level: warn
`, backendURL, filepath.Join(dir, "storage.json"))
	path := filepath.Join(dir, "voicechat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	loginUsername, loginPassword, devListen, logLevel = "", "", "", ""

	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", cfg, "--no-dotenv"}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestLoginStatusLogout(t *testing.T) {
	cfg := writeConfig(t, newBackend(t))

	out, err := execute(t, cfg, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "session:  not logged in")

	out, err = execute(t, cfg, "", "login", "-u", "admin", "-p", "admin")
	require.NoError(t, err)
	assert.Equal(t, "logged in as admin\n", out)

	out, err = execute(t, cfg, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "session:  logged in")
	assert.Contains(t, out, "subject:  admin")
	assert.Contains(t, out, "(valid)")

	out, err = execute(t, cfg, "", "open", "/chats")
	require.NoError(t, err)
	assert.Contains(t, out, "/chats -> /chats [Chats]")

	out, err = execute(t, cfg, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	out, err = execute(t, cfg, "", "open", "/chats")
	require.NoError(t, err)
	assert.Contains(t, out, "/chats -> /login [Login]")
	assert.Contains(t, out, "login required")
}

func TestLoginPasswordFromStdin(t *testing.T) {
	cfg := writeConfig(t, newBackend(t))

	out, err := execute(t, cfg, "admin\n", "login", "-u", "admin")
	require.NoError(t, err)
	assert.Equal(t, "logged in as admin\n", out)
}

func TestLoginRejected(t *testing.T) {
	cfg := writeConfig(t, newBackend(t))

	_, err := execute(t, cfg, "", "login", "-u", "admin", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, "login rejected: Incorrect username or password", err.Error())

	out, err := execute(t, cfg, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not logged in")
}

func TestOpenAndRoutes(t *testing.T) {
	cfg := writeConfig(t, newBackend(t))

	out, err := execute(t, cfg, "", "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "/chat/:id")
	assert.Contains(t, out, "-> /chats")

	out, err = execute(t, cfg, "", "open", "/nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "[NotFound]")
	assert.Contains(t, out, "no route matches")

	_, err = execute(t, cfg, "", "open")
	assert.Error(t, err)
}
