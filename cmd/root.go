package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facecheck/internal/logging"
	"github.com/andresmejia3/facecheck/internal/store"
	"github.com/andresmejia3/facecheck/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the evaluate, detect and serve commands
type Options struct {
	PositivePath string
	NegativePath string
	DetectorName string
	CascadePath  string
	NumEngines   int
	TempDir      string
	JSON         bool
	Save         bool
	RunName      string
}

var (
	// DB is the global database connection shared by subcommands that persist runs
	DB *store.Store
	// Logger is the structured logger configured from --log-level and --log-format
	Logger *slog.Logger
	// dbURL is the connection string
	dbURL     string
	logLevel  string
	logFormat string
)

// Version is the application version.
const Version = "0.1.0"

// annotationDB marks commands that always need the database.
const annotationDB = "facecheck/db"

var rootCmd = &cobra.Command{
	Use:     "facecheck",
	Short:   "Face detector accuracy evaluation",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Logger, err = logging.New(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(Logger)

		if !needsDB(cmd) {
			return nil
		}

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), resolveDBURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.SilenceErrors = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		utils.Die("Command failed", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/facecheck)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text, json")
}

// needsDB reports whether cmd requires a database connection, either always
// (annotated commands) or because the user asked to persist the run.
func needsDB(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationDB] == "required" {
		return true
	}
	save, err := cmd.Flags().GetBool("save")
	return err == nil && save
}

// resolveDBURL returns the --db flag, else a connection string built from the
// POSTGRES_* environment, else the local default.
func resolveDBURL() string {
	if dbURL != "" {
		return dbURL
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/facecheck"
}

// logger returns the configured logger, or the slog default before PersistentPreRunE has run.
func logger() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}
