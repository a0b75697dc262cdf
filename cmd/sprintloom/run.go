package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jcolby/sprintloom/internal/config"
	"github.com/jcolby/sprintloom/internal/orchestrator"
	"github.com/jcolby/sprintloom/internal/store"
	"github.com/jcolby/sprintloom/internal/tui"
	"github.com/jcolby/sprintloom/internal/workers"
	"github.com/jcolby/sprintloom/pkg/models"
)

var (
	runPlanFile   string
	runRosterFile string
	runWatch      bool
	runTick       time.Duration
	runStorePath  string
	runMaxRetries int
	runLogPath    string
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Execute a sprint plan with a worker pool",
	Long: `Decompose a request (or load a plan with --file), allocate sprints
to workers from the roster, and drive the run to completion.

Execution is simulated: each sprint "runs" for --tick, scaled so the
schedule's shape is observable without real work. Wire a real executor
by embedding the orchestrator package instead.

Workers come from a roster YAML (--roster):

  workers:
    - id: w1
      name: alice
      type: manager
      skills: [planning, review]
    - id: w2
      name: bob
      skills: [implementation]

Without --roster, a default pool of three general workers is used.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSprints,
}

func init() {
	runCmd.Flags().StringVarP(&runPlanFile, "file", "f", "", "Load the plan from a YAML file instead of decomposing")
	runCmd.Flags().StringVar(&runRosterFile, "roster", "", "Worker roster YAML file")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Watch the run in a live TUI")
	runCmd.Flags().DurationVar(&runTick, "tick", 50*time.Millisecond, "Simulated execution time per sprint")
	runCmd.Flags().StringVar(&runStorePath, "store", "", "SQLite store path for sprint records (default from config)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Retry bound per sprint (default from config)")
	runCmd.Flags().StringVar(&runLogPath, "log", "", "Debug log path (default from config)")
}

func runSprints(cmd *cobra.Command, args []string) error {
	if runPlanFile == "" && len(args) == 0 {
		return fmt.Errorf("provide a request to decompose or --file with a plan")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	plan, err := buildPlan(runPlanFile, args, planConstraints(cfg))
	if err != nil {
		return err
	}

	pool, err := buildRoster()
	if err != nil {
		return err
	}

	opts, cleanup, err := runOptions(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := orchestrator.New(orchestrator.RequiredConfig{
		Graph:    plan.Graph,
		Pool:     pool,
		Executor: simExecutor(runTick),
	}, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	if runWatch {
		return runWithTUI(ctx, o, plan.Sprints)
	}
	return runHeadless(ctx, o)
}

// buildRoster loads the roster file or falls back to three general workers.
func buildRoster() (*workers.Pool, error) {
	if runRosterFile != "" {
		return workers.LoadRoster(runRosterFile)
	}

	pool := workers.NewPool()
	for _, name := range []string{"worker-1", "worker-2", "worker-3"} {
		pool.Register(&models.Worker{Name: name, Status: models.WorkerStatusAvailable})
	}
	return pool, nil
}

// runOptions assembles orchestrator options from config and flags.
// The returned cleanup closes the store and log file.
func runOptions(cfg *config.Config) ([]orchestrator.Option, func(), error) {
	var opts []orchestrator.Option
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	maxRetries := cfg.Orchestrator.MaxRetries
	if runMaxRetries > 0 {
		maxRetries = runMaxRetries
	}
	opts = append(opts,
		orchestrator.WithMaxRetries(maxRetries),
		orchestrator.WithTimeoutMultiplier(cfg.Orchestrator.TimeoutMultiplier),
		orchestrator.WithAcceptanceThreshold(cfg.Scheduling.AcceptanceThreshold),
	)

	storePath := cfg.Store.Path
	if runStorePath != "" {
		storePath = runStorePath
	}
	if storePath != "" {
		db, err := store.Open(storePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open store: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		opts = append(opts, orchestrator.WithRecorder(store.NewRetrying(db)))
	}

	logPath := cfg.Log.Path
	if runLogPath != "" {
		logPath = runLogPath
	}
	switch {
	case logPath != "":
		logger, err := orchestrator.NewDebugLogger(logPath)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { logger.Close() })
		opts = append(opts, orchestrator.WithLogger(logger))
	case projectInitialized("."):
		// No explicit log path, but the project has been initialized;
		// default to its .sprintloom/logs directory.
		logger := orchestrator.NewDebugLoggerForProject(".")
		closers = append(closers, func() { logger.Close() })
		opts = append(opts, orchestrator.WithLogger(logger))
	}

	return opts, cleanup, nil
}

// projectInitialized reports whether root carries a .sprintloom directory.
func projectInitialized(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".sprintloom"))
	return err == nil && info.IsDir()
}

// simExecutor pretends to execute a sprint by sleeping for the tick,
// honoring cancellation.
func simExecutor(tick time.Duration) orchestrator.SprintExecutor {
	return orchestrator.SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(tick):
		}
		return &models.Deliverables{ActualDuration: tick}, nil
	})
}

// runWithTUI drives the orchestrator while a bubbletea app renders events.
func runWithTUI(ctx context.Context, o *orchestrator.Orchestrator, sprints []*models.Sprint) error {
	app := tui.New(sprints, o.Events())
	program := tea.NewProgram(app, tea.WithContext(ctx))

	errCh := make(chan error, 1)
	go func() {
		err := o.Run(ctx)
		program.Send(tui.RunDoneMsg{Err: err})
		errCh <- err
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	return <-errCh
}

// runHeadless prints events as colored lines until the run finishes.
func runHeadless(ctx context.Context, o *orchestrator.Orchestrator) error {
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	for event := range o.Events() {
		printEvent(event)
	}
	return <-errCh
}

func printEvent(event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventSprintStarted:
		fmt.Printf("%s %s on %s\n", color.CyanString("▶"), event.SprintID, event.WorkerID)
	case orchestrator.EventSprintCompleted:
		fmt.Printf("%s %s (%s)\n", color.GreenString("✓"), event.SprintID, event.Duration.Round(time.Millisecond))
	case orchestrator.EventSprintFailed:
		fmt.Printf("%s %s attempt %d: %v\n", color.YellowString("⚠"), event.SprintID, event.RetryCount, event.Error)
	case orchestrator.EventSprintAbandoned:
		fmt.Printf("%s %s abandoned after %d attempts\n", color.RedString("✗"), event.SprintID, event.RetryCount)
	case orchestrator.EventSprintsUnblocked:
		fmt.Printf("%s unblocked %s\n", color.CyanString("→"), strings.Join(event.Unblocked, ", "))
	case orchestrator.EventProjectDone:
		fmt.Printf("\n%s all sprints completed\n", color.GreenString("✓"))
	case orchestrator.EventProjectStalled:
		fmt.Printf("\n%s run stalled: %v\n", color.RedString("✗"), event.Error)
	}
}
