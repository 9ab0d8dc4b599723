package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"n8n-snap/internal/batch"
	"n8n-snap/internal/config"
	"n8n-snap/internal/dashboard"
	"n8n-snap/internal/logging"
	"n8n-snap/internal/model"
	"n8n-snap/internal/render"
	"n8n-snap/internal/runstore"
	"n8n-snap/internal/scan"
	"n8n-snap/internal/server"
)

type generateOutput struct {
	RunID      string         `json:"run_id"`
	InputDir   string         `json:"input_dir"`
	ReportPath string         `json:"report_path"`
	Skipped    int            `json:"skipped"`
	Stats      model.RunStats `json:"stats"`
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	input := fs.String("input", "", "folder containing workflow JSON files")
	output := fs.String("output", "", "output folder for rendered images (default: <input>/images)")
	inPlace := fs.Bool("in-place", false, "write each PNG next to its source file")
	force := fs.Bool("force", false, "re-render workflows already successful in a previous run")
	recursive := fs.Bool("recursive", false, "descend into subfolders")
	width := fs.Int("width", 0, "viewport width in pixels")
	height := fs.Int("height", 0, "viewport height in pixels")
	square := fs.Bool("square", false, fmt.Sprintf("render %dx%d square images", config.SquareSize, config.SquareSize))
	darkMode := fs.Bool("dark-mode", false, "render with the dark theme")
	timeout := fs.Int("timeout", 0, "per-workflow render budget in seconds")
	waitTime := fs.Int("wait-time", 0, "seconds to let the workflow lay out before the screenshot")
	retries := fs.Int("retries", -1, "render retries per workflow (-1 = settings/default)")
	port := fs.Int("port", 0, "render backend port")
	workers := fs.Int("workers", 0, "concurrent render workers (0 = settings/default)")
	progress := fs.Bool("progress", true, "show live progress renderer")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputDir := strings.TrimSpace(*input)
	if inputDir == "" {
		return fmt.Errorf("--input is required")
	}

	settings, settingsPath, err := config.Discover(inputDir)
	if err != nil {
		return err
	}

	cfg := settings.Render
	cfg.Width = firstNonZero(*width, cfg.Width)
	cfg.Height = firstNonZero(*height, cfg.Height)
	cfg.TimeoutSeconds = firstNonZero(*timeout, cfg.TimeoutSeconds)
	cfg.WaitSeconds = firstNonZero(*waitTime, cfg.WaitSeconds)
	if *retries >= 0 {
		cfg.Retries = *retries
	}
	if flagWasSet(fs, "dark-mode") {
		cfg.DarkMode = *darkMode
	}
	if *square {
		cfg.Width = config.SquareSize
		cfg.Height = config.SquareSize
	}
	effectivePort := firstNonZero(*port, settings.Port)
	effectiveWorkers := firstNonZero(*workers, settings.Workers, runtime.NumCPU())
	if cpus := runtime.NumCPU(); effectiveWorkers > cpus {
		fmt.Fprintf(os.Stderr, "workers capped to CPU count: %d -> %d\n", effectiveWorkers, cpus)
		effectiveWorkers = cpus
	}

	outputDir := strings.TrimSpace(*output)
	if !*inPlace && outputDir == "" {
		outputDir = filepath.Join(inputDir, "images")
	}
	reportDir := outputDir
	mode := "output"
	if *inPlace {
		reportDir = inputDir
		mode = "in-place"
	}

	lock, err := runstore.AcquireRunLock(inputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	workflows, err := scan.Scan(scan.Options{InputDir: inputDir, Recursive: *recursive})
	if err != nil {
		return err
	}
	jobs := batch.BuildJobs(workflows, batch.BuildJobsOptions{
		InputDir:  inputDir,
		OutputDir: outputDir,
		InPlace:   *inPlace,
		Config:    &cfg,
	})

	displayPath := func(p string) string { return batch.JobID(inputDir, p) }

	var prior []model.JobReport
	skipped := 0
	if !*force {
		jobs, prior, skipped, err = skipPriorSuccesses(reportDir, jobs, displayPath)
		if err != nil {
			return err
		}
	}

	quiet := *jsonOut || !stdoutIsTTY()
	log := logging.NewLogger(os.Getenv("APP_ENV"))
	if quiet {
		log = logging.Quiet()
	}
	if settingsPath != "" && !quiet {
		fmt.Printf("settings: %s\n", settingsPath)
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

	runID := uuid.NewString()
	orch := batch.New(batch.RunOptions{
		RunID:       runID,
		Jobs:        jobs,
		Workers:     effectiveWorkers,
		Client:      client,
		Settings:    cfg,
		InputDir:    inputDir,
		Mode:        mode,
		ReportDir:   reportDir,
		PriorJobs:   prior,
		DisplayPath: displayPath,
	})

	stats, runErr := driveRun(ctx, stop, orch, *progress && !quiet, quiet)
	if runErr != nil {
		return runErr
	}

	if *jsonOut {
		if err := printJSON(generateOutput{
			RunID:      runID,
			InputDir:   inputDir,
			ReportPath: runstore.ReportPath(reportDir),
			Skipped:    skipped,
			Stats:      stats,
		}); err != nil {
			return err
		}
	} else {
		fmt.Println("generate summary")
		fmt.Printf("run_id: %s\n", runID)
		fmt.Printf("rendered: %d/%d\n", stats.Total-stats.Remaining, stats.Total)
		fmt.Printf("succeeded: %d\n", stats.Succeeded)
		fmt.Printf("failed: %d\n", stats.Failed)
		fmt.Printf("replaced: %d\n", stats.Replaced)
		if skipped > 0 {
			fmt.Printf("skipped_previous_successes: %d\n", skipped)
		}
		fmt.Printf("report: %s\n", runstore.ReportPath(reportDir))
	}

	if ctx.Err() != nil && !stats.Complete {
		return fmt.Errorf("run cancelled with %d workflow(s) unrendered", stats.Remaining)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d workflow(s) failed to render", stats.Failed)
	}
	return nil
}

// driveRun executes the orchestrator with the matching display: the
// interactive dashboard on a TTY, a plain ticker otherwise. Quiet runs
// (--json, piped stdout) print nothing so stdout carries only the final
// document.
func driveRun(ctx context.Context, cancel context.CancelFunc, orch *batch.Orchestrator, interactive, quiet bool) (model.RunStats, error) {
	done := make(chan struct{})
	var stats model.RunStats
	var runErr error
	go func() {
		defer close(done)
		stats, runErr = orch.Run(ctx)
	}()

	switch {
	case interactive:
		if err := dashboard.Run(dashboard.Options{
			Source: orch,
			Done:   done,
			Cancel: cancel,
			Title:  "n8n-snap generate",
		}); err != nil {
			<-done
			if runErr != nil {
				return stats, runErr
			}
			return stats, err
		}
	case quiet:
		<-done
	default:
		ticker := dashboard.NewPlainTicker(orch)
		ticker.Start()
		<-done
		ticker.Stop()
	}

	<-done
	return stats, runErr
}

// skipPriorSuccesses drops jobs already rendered successfully by a previous
// run in the same report location and returns their report entries so the
// final report still accounts for them.
func skipPriorSuccesses(reportDir string, jobs []model.Job, displayPath func(string) string) ([]model.Job, []model.JobReport, int, error) {
	report, found, err := runstore.LoadReport(reportDir)
	if err != nil {
		return nil, nil, 0, err
	}
	if !found {
		return jobs, nil, 0, nil
	}

	succeeded := make(map[string]model.JobReport, len(report.Jobs))
	for _, entry := range report.Jobs {
		// Entries with statuses this version does not know are re-rendered.
		if !model.IsKnownStatus(entry.Status) {
			continue
		}
		if entry.Status == model.StatusSuccess || entry.Status == model.StatusReplaced {
			succeeded[entry.SourcePath] = entry
		}
	}

	kept := jobs[:0]
	var prior []model.JobReport
	for _, job := range jobs {
		entry, ok := succeeded[displayPath(job.SourcePath)]
		if !ok {
			kept = append(kept, job)
			continue
		}
		// Skip only while the artifact still exists.
		if _, statErr := os.Stat(job.OutputPath); statErr != nil {
			kept = append(kept, job)
			continue
		}
		prior = append(prior, entry)
	}
	for i := range kept {
		kept[i].Index = i
	}
	return kept, prior, len(prior), nil
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
