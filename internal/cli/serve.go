package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localrivet/protext"
	"github.com/localrivet/protext/internal/artifacts"
	"github.com/localrivet/protext/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server on stdio",
	Long: `Serve summarize_text, summarize_document, get_artifact and summarizer_health
to an MCP client over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info("protext MCP server - Starting...")

	handle, store, svc, err := protext.CreateComponents(GetConfig(), log)
	if err != nil {
		return err
	}
	defer store.Close()
	defer handle.Close()

	srv := server.NewMCPToolServer(svc, "protext", 0)
	if err := srv.Initialize(); err != nil {
		return err
	}

	setupSignalHandler(store)

	log.Info("Starting MCP server...")
	return srv.Start()
}

// setupSignalHandler closes the store and exits on SIGINT or SIGTERM.
func setupSignalHandler(store artifacts.Store) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Shutting down...")
		if err := store.Close(); err != nil {
			log.Error("Error closing store", "error", err)
		}
		os.Exit(0)
	}()
}
