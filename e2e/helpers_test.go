package e2e_test

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudpad/cloudpad/clientcli"
)

const testToken = "e2e-secret-token"

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "cloudpad-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if testCleanup != nil {
		testCleanup()
	}
	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// ServerConfig holds configuration for starting the cloudpad server.
type ServerConfig struct {
	Port          int
	BucketType    string // memory, local
	DBType        string // sqlite, postgres
	DBDSN         string
	StoragePath   string
	Token         string
	TokenFile     string
	MaxUploadSize int64
	Metrics       bool
}

// buildBinary compiles the cloudpad binary once per test run.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "cloudpad")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/cloudpad")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes a config file for the server and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	bucketType := cfg.BucketType
	if bucketType == "" {
		bucketType = "local"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `server:
  port: %d
  max_upload_size: %d

bucket:
  type: %s

database:
  type: %s
  dsn: "%s"

storage:
  path: "%s"

auth:
`,
		cfg.Port,
		cfg.MaxUploadSize,
		bucketType,
		cfg.DBType,
		cfg.DBDSN,
		cfg.StoragePath,
	)

	if cfg.TokenFile != "" {
		fmt.Fprintf(&sb, "  token_file: %q\n", cfg.TokenFile)
	} else {
		fmt.Fprintf(&sb, "  token: %q\n", cfg.Token)
	}

	fmt.Fprintf(&sb, "\nmetrics:\n  enabled: %t\n", cfg.Metrics)
	sb.WriteString("\nlog:\n  level: error\n")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte(sb.String()), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// runCommand runs a one-shot cloudpad subcommand against the config.
func runCommand(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	binary := buildBinary(t)
	cmd := exec.Command(binary, append(args, "--config", configPath)...)
	cmd.Env = cleanEnv()
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s: %s", strings.Join(args, " "), output)
	return string(output)
}

// startServer starts the cloudpad binary with the given configuration.
// Returns the base URL; the server is stopped on test cleanup.
func startServer(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	if cfg.Token == "" && cfg.TokenFile == "" {
		cfg.Token = testToken
	}
	if cfg.Port == 0 {
		cfg.Port = getOpenPort(t)
	}

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	if cfg.BucketType == "" || cfg.BucketType == "local" {
		runCommand(t, configPath, "migrate")
	}

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Env = cleanEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	require.NoError(t, cmd.Start(), "start server")

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	})

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(t, baseURL, 10*time.Second)

	return baseURL
}

// cleanEnv drops CLOUDPAD_* variables so only the config file applies.
func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "CLOUDPAD_") {
			env = append(env, kv)
		}
	}
	return env
}

// newClient returns a clientcli.Client for baseURL with token.
func newClient(t *testing.T, baseURL, token string) *clientcli.Client {
	t.Helper()

	client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, Token: token})
	require.NoError(t, err)
	return client
}

// waitForServer polls the server until it responds or times out.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port

	require.NoError(t, l.Close(), "close port")

	return port
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
