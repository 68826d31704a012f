package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localrivet/protext"
	"github.com/localrivet/protext/internal/server"
)

var httpAddr string

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the HTTP API",
	Long: `Serve the summarization API over HTTP.

Routes:
  POST /api/v1/summaries        JSON {"text", "max_length", "min_length"}
  POST /api/v1/documents        multipart form with a "file" field
  GET  /api/v1/artifacts/{id}   download a summary or extracted text
  GET  /healthz                 capability health
  GET  /metrics                 Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runHTTP,
}

func init() {
	rootCmd.AddCommand(httpCmd)
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address (default from config)")
}

func runHTTP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	handle, store, svc, err := protext.CreateComponents(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer handle.Close()

	httpCfg := server.HTTPConfig{
		Addr:              cfg.HTTP.Addr,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		MaxBodyBytes:      int64(cfg.HTTP.MaxUploadMB+1) << 20,
		PurgeInterval:     10 * time.Minute,
	}
	if httpAddr != "" {
		httpCfg.Addr = httpAddr
	}

	srv := server.NewHTTPServer(svc, httpCfg, log)
	if err := srv.Initialize(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case <-sig:
		log.Info("Shutting down...")
	}

	if err := srv.Stop(); err != nil {
		return err
	}
	return <-errCh
}
