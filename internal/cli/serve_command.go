package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"n8n-snap/internal/config"
	"n8n-snap/internal/logging"
	"n8n-snap/internal/server"
)

// runServe hosts the render backend standalone, for poking at /render in a
// real browser.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", config.DefaultPort, "render backend port")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.NewLogger(os.Getenv("APP_ENV"))
	srv := server.New(server.Options{Port: *port, Logger: log})
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("render backend listening on %s (ctrl+c to stop)\n", srv.URL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
