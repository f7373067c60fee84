package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MichelMeloG/JurChat/config"
	"github.com/MichelMeloG/JurChat/pkg/logger"
	"github.com/MichelMeloG/JurChat/service"
)

var (
	configPath string
	envFile    string
	verbose    bool

	// set by loadConfig before any command runs
	cfg     *config.Config
	backend service.Backend
)

var rootCmd = &cobra.Command{
	Use:   "jurchat",
	Short: "Upload legal documents, read their analysis and chat about them",
	Long: `JurChat sends legal documents (PDF, DOC, DOCX) to the analysis workflow,
shows the plain-language translation and clause summaries it produces, and
answers questions about a document. Run "jurchat serve" to start the HTTP
gateway used by the web front-end.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warnings only")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if cmd != serveCmd && !verbose {
		level = "warn"
	}
	logger.Init(&logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	backend = service.NewWebhookClient(&cfg.Webhook)
	return nil
}
