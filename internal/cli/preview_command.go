package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"n8n-snap/internal/config"
	"n8n-snap/internal/logging"
	"n8n-snap/internal/render"
	"n8n-snap/internal/runstore"
	"n8n-snap/internal/server"
)

type previewOutput struct {
	SourcePath string `json:"source_path"`
	OutputPath string `json:"output_path"`
	DurationMs int64  `json:"duration_ms"`
}

// runPreview renders exactly one workflow file, bypassing the batch engine.
func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	file := fs.String("file", "", "workflow JSON file to render")
	output := fs.String("output", "", "output PNG path (default: next to the source file)")
	width := fs.Int("width", 0, "viewport width in pixels")
	height := fs.Int("height", 0, "viewport height in pixels")
	square := fs.Bool("square", false, fmt.Sprintf("render %dx%d square images", config.SquareSize, config.SquareSize))
	darkMode := fs.Bool("dark-mode", false, "render with the dark theme")
	timeout := fs.Int("timeout", 0, "render budget in seconds")
	waitTime := fs.Int("wait-time", 0, "seconds to let the workflow lay out before the screenshot")
	port := fs.Int("port", 0, "render backend port")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	sourcePath := strings.TrimSpace(*file)
	if sourcePath == "" {
		return fmt.Errorf("--file is required")
	}

	settings, _, err := config.Discover(filepath.Dir(sourcePath))
	if err != nil {
		return err
	}
	cfg := settings.Render
	cfg.Width = firstNonZero(*width, cfg.Width)
	cfg.Height = firstNonZero(*height, cfg.Height)
	cfg.TimeoutSeconds = firstNonZero(*timeout, cfg.TimeoutSeconds)
	cfg.WaitSeconds = firstNonZero(*waitTime, cfg.WaitSeconds)
	if flagWasSet(fs, "dark-mode") {
		cfg.DarkMode = *darkMode
	}
	if *square {
		cfg.Width = config.SquareSize
		cfg.Height = config.SquareSize
	}
	effectivePort := firstNonZero(*port, settings.Port)

	workflow, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read workflow %s: %w", sourcePath, err)
	}
	if err := render.ValidatePayload(workflow); err != nil {
		return err
	}

	outputPath := strings.TrimSpace(*output)
	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		outputPath = filepath.Join(filepath.Dir(sourcePath), base+".png")
	}

	quiet := *jsonOut || !stdoutIsTTY()
	log := logging.NewLogger(os.Getenv("APP_ENV"))
	if quiet {
		log = logging.Quiet()
	}

	srv := server.New(server.Options{Port: effectivePort, Logger: log})
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthCtx, cancelHealth := context.WithTimeout(ctx, 30*time.Second)
	defer cancelHealth()
	if err := render.WaitForBackend(healthCtx, srv.URL()); err != nil {
		return err
	}

	client, err := render.NewBrowserClient(ctx, render.BrowserOptions{ServerURL: srv.URL(), Logger: log})
	if err != nil {
		return err
	}
	defer client.Close()

	started := time.Now()
	png, err := client.Render(ctx, workflow, cfg)
	if err != nil {
		return fmt.Errorf("render %s: %w", sourcePath, err)
	}
	if err := runstore.WriteBytes(outputPath, png); err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(previewOutput{
			SourcePath: sourcePath,
			OutputPath: outputPath,
			DurationMs: time.Since(started).Milliseconds(),
		})
	}
	fmt.Printf("rendered %s -> %s (%s)\n", sourcePath, outputPath, time.Since(started).Round(time.Millisecond))
	return nil
}
