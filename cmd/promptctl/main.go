package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dailyprompt/internal/app"
	"dailyprompt/internal/config"
	"dailyprompt/internal/logging"
	"dailyprompt/internal/models"
	"dailyprompt/internal/service"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	// Command flags
	seedFile     string
	groupID      string
	date         string
	viewerID     string
	skipMigrate  bool
	outputFormat string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "promptctl",
	Short: "Operate the daily prompt engine",
	Long: `promptctl runs migrations, loads prompt catalogs, and resolves or
schedules daily prompts against the configured store.

Configuration is read from the same environment variables as the server
(DATABASE_TYPE, DB_PATH, DATABASE_URL, MIGRATIONS_PATH, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode := "production"
		if verbose {
			mode = "development"
		}
		var err error
		logger, err = logging.New(mode)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load prompts and demo groups from a YAML catalog",
	Long: `Upserts every prompt and group in the catalog in one transaction.

Example:
  promptctl seed --file catalog/prompts.yaml`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the prompt a viewer sees for a group on a date",
	Long: `Resolves (and, on first call, creates) the group's prompt for the date.

Example:
  promptctl resolve --group demo-family --date 2024-03-05 --viewer demo-ann`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Create every group's prompt and birthday overrides for a date",
	Long: `Runs the daily scheduler over all groups. The date defaults to today (UTC).

Example:
  promptctl schedule --date 2024-03-05`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply migrations before running")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Catalog YAML file (required)")
	seedCmd.MarkFlagRequired("file")

	resolveCmd.Flags().StringVarP(&groupID, "group", "g", "", "Group ID (required)")
	resolveCmd.Flags().StringVarP(&date, "date", "d", "", "Date as YYYY-MM-DD (required)")
	resolveCmd.Flags().StringVar(&viewerID, "viewer", "", "Viewer user ID")
	resolveCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text or json")
	resolveCmd.MarkFlagRequired("group")
	resolveCmd.MarkFlagRequired("date")

	scheduleCmd.Flags().StringVarP(&date, "date", "d", "", "Date as YYYY-MM-DD (default: today UTC)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the engine and runs fn with a bounded,
// interruptible context
func withApp(migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate && !skipMigrate {
		if _, err := a.Migrate(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withApp(false, func(ctx context.Context, a *app.App) error {
		applied, err := a.Migrate(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "No pending migrations")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(out, "applied %s\n", name)
		}
		return nil
	})
}

func runSeed(cmd *cobra.Command, args []string) error {
	return withApp(true, func(ctx context.Context, a *app.App) error {
		stats, err := a.Seeder.SeedFile(ctx, seedFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d prompts, %d groups, %d members, %d memorials, %d preferences\n",
			stats.Prompts, stats.Groups, stats.Members, stats.Memorials, stats.Preferences)
		return nil
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
	return withApp(true, func(ctx context.Context, a *app.App) error {
		assignment, err := a.Prompts.Resolve(ctx, groupID, date, viewerID)
		if err != nil {
			return err
		}
		return printAssignment(cmd.OutOrStdout(), assignment, outputFormat)
	})
}

func runSchedule(cmd *cobra.Command, args []string) error {
	day := date
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}
	return withApp(true, func(ctx context.Context, a *app.App) error {
		results, err := a.Scheduler.ScheduleDay(ctx, day)
		if err != nil {
			return err
		}
		failed := printResults(cmd.OutOrStdout(), day, results)
		if failed > 0 {
			return fmt.Errorf("%d of %d groups failed", failed, len(results))
		}
		return nil
	})
}

type resolveOutput struct {
	Scheduled bool   `json:"scheduled"`
	ID        string `json:"assignment_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	Date      string `json:"date,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	PromptID  string `json:"prompt_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Question  string `json:"question,omitempty"`
}

func printAssignment(w io.Writer, a *models.Assignment, format string) error {
	out := resolveOutput{}
	if a != nil {
		out = resolveOutput{
			Scheduled: true,
			ID:        a.ID,
			GroupID:   a.GroupID,
			Date:      a.Date,
			UserID:    a.UserID,
			PromptID:  a.PromptID,
			Question:  a.Question,
		}
		if a.Prompt != nil {
			out.Category = a.Prompt.Category
		}
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if !out.Scheduled {
		fmt.Fprintln(w, "Not scheduled: no eligible prompt")
		return nil
	}
	fmt.Fprintf(w, "%s  [%s] %s\n", out.Date, out.Category, out.Question)
	fmt.Fprintf(w, "  prompt %s, assignment %s\n", out.PromptID, out.ID)
	return nil
}

func printResults(w io.Writer, day string, results []service.GroupResult) int {
	failed := 0
	fmt.Fprintf(w, "Schedule for %s\n", day)
	for _, r := range results {
		switch r.Status {
		case service.StatusFailed:
			failed++
			fmt.Fprintf(w, "  %-24s %-20s %v\n", r.GroupID, r.Status, r.Err)
		case service.StatusBirthdayScheduled:
			fmt.Fprintf(w, "  %-24s %-20s %s (+%d overrides)\n", r.GroupID, r.Status, r.PromptID, r.Overrides)
		default:
			fmt.Fprintf(w, "  %-24s %-20s %s\n", r.GroupID, r.Status, r.PromptID)
		}
	}
	return failed
}
