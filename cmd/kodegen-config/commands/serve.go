package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/event"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/internal/server"
	"github.com/cyrup-ai/kodegen-tools-config/internal/sysinfo"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/mcpserver/configtools"
)

var (
	serveAddr    string
	serveTLSCert string
	serveTLSKey  string
	serveNoCORS  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the configuration HTTP API, including the /event stream
and the MCP streamable HTTP transport at /mcp.`,
	RunE: runServe,
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve the MCP config tools over stdin/stdout",
	RunE:  runStdio,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultConfig().Addr, "Address to listen on")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "TLS key file")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false, "Disable CORS headers")
	serveCmd.MarkFlagsRequiredTogether("tls-cert", "tls-key")
}

func runServe(cmd *cobra.Command, args []string) error {
	// One bus feeds the manager's events to the SSE stream.
	bus := event.NewBus()
	defer bus.Close()

	m, err := openManager(cmd.Context(), config.WithBus(bus))
	if err != nil {
		return err
	}
	defer closeManager(m)

	cfg := server.DefaultConfig()
	cfg.Addr = serveAddr
	cfg.TLSCertFile = serveTLSCert
	cfg.TLSKeyFile = serveTLSKey
	cfg.EnableCORS = !serveNoCORS

	srv := server.New(cfg, m, bus, configtools.NewServer(m, sysinfo.Version))

	logging.Info().
		Str("version", sysinfo.Version).
		Str("config", m.Path()).
		Msg("starting kodegen-config server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown")
	}

	logging.Info().Msg("server stopped")
	return nil
}

func runStdio(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeManager(m)

	logging.Info().Str("config", m.Path()).Msg("serving config tools on stdio")
	return mcpserver.ServeStdio(configtools.NewServer(m, sysinfo.Version))
}
