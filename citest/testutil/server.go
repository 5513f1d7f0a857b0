package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/event"
	"github.com/cyrup-ai/kodegen-tools-config/internal/server"
	"github.com/cyrup-ai/kodegen-tools-config/internal/sysinfo"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/mcpserver/configtools"
)

// TestServer wraps a server instance for testing
type TestServer struct {
	Server     *server.Server
	Manager    *config.Manager
	Bus        *event.Bus
	BaseURL    string
	ConfigPath string
	TempDir    string
	port       int
}

// TestServerOption configures TestServer
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	envFile   string
	debounce  time.Duration
	heartbeat time.Duration
}

// WithEnvFile sets the .env file to load
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// WithDebounce sets the save debounce of the config manager
func WithDebounce(d time.Duration) TestServerOption {
	return func(c *testServerConfig) {
		c.debounce = d
	}
}

// WithHeartbeat sets the SSE heartbeat interval
func WithHeartbeat(d time.Duration) TestServerOption {
	return func(c *testServerConfig) {
		c.heartbeat = d
	}
}

// StartTestServer creates and starts a test server backed by a config
// file in a fresh temp directory.
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{debounce: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(cfg)
	}

	// Load environment variables
	if cfg.envFile != "" {
		_ = godotenv.Load(cfg.envFile)
	} else {
		_ = godotenv.Load("../../.env")
	}

	tempDir, err := os.MkdirTemp("", "kodegen-config-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	ctx := context.Background()
	configPath := filepath.Join(tempDir, ".kodegen", "config.json")
	bus := event.NewBus()

	manager := config.NewManager(
		config.WithPath(configPath),
		config.WithBus(bus),
		config.WithDebounce(cfg.debounce),
	)
	if err := manager.Init(ctx); err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to init config: %w", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Addr = fmt.Sprintf("127.0.0.1:%d", port)
	if cfg.heartbeat > 0 {
		serverConfig.HeartbeatInterval = cfg.heartbeat
	}

	srv := server.New(serverConfig, manager, bus, configtools.NewServer(manager, sysinfo.Version))

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(ctx)
		manager.Close(ctx)
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:     srv,
		Manager:    manager,
		Bus:        bus,
		BaseURL:    baseURL,
		ConfigPath: configPath,
		TempDir:    tempDir,
		port:       port,
	}, nil
}

// Stop shuts down the test server, flushes the config and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if ts.Manager != nil {
		if err := ts.Manager.Close(ctx); err != nil {
			return err
		}
	}
	if ts.Bus != nil {
		ts.Bus.Close()
	}

	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}

	return nil
}

// Client returns a new test client for this server
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// SSEClient returns a new SSE client for this server
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// ReadConfigFile returns the persisted config file contents.
func (ts *TestServer) ReadConfigFile() (string, error) {
	data, err := os.ReadFile(ts.ConfigPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/health")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
