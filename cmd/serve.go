package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the resumes and serve the ranking API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :5000 or :$PORT)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, sess, logger := bootstrap(ctx)
	defer logger.Sync()

	srv, err := server.New(server.Config{Addr: listenAddr(config)}, sess, logger)
	if err != nil {
		logger.Fatal("creating the server", zap.Error(err))
	}

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}

// listenAddr prefers server.addr, then the PORT variable.
func listenAddr(config *Config) string {
	if addr := strings.TrimSpace(config.Server.Addr); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(config.Port); port != "" {
		return ":" + port
	}
	return server.DefaultAddr
}
