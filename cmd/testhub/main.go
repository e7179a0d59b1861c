// Command testhub is the terminal client of the Testing Hub test-generation
// service.
package main

import (
	"fmt"
	"os"

	"testhub/internal/config"
	"testhub/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd launches the interactive interface
var rootCmd = &cobra.Command{
	Use:   "testhub",
	Short: "Testing Hub - generate test scripts from source code",
	Long: `testhub uploads a single code file or a zipped project to the Testing Hub
backend and shows the test script it generates.

Run without arguments to start the interactive interface.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logCfg := cfg.Logging
		if verbose {
			logCfg.Level = "debug"
			if logCfg.File == "" {
				logCfg.File = "stderr"
			}
		}
		// The interactive interface owns the terminal.
		if cmd == cmd.Root() && (logCfg.File == "stderr" || logCfg.File == "stdout") {
			logCfg.File = ""
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Root()
		logging.BootDebug("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")

	rootCmd.Flags().StringVar(&startPath, "path", "/", "Initial page path (/, /about, /projects, /create-test, /contact)")
	rootCmd.Flags().StringVar(&startDir, "dir", "", "Directory the file picker opens in (default: current)")

	generateCmd.Flags().StringVarP(&genLanguage, "language", "l", "", "Target language (default from config)")
	generateCmd.Flags().StringVarP(&genFramework, "framework", "f", "", "Target test framework (default from config)")
	generateCmd.Flags().StringVar(&genInstructions, "instructions", "", "Optional instructions for the generator")
	generateCmd.Flags().StringVarP(&genOutDir, "out-dir", "o", "", "Write scripts to <out-dir>/<name>.generated.txt instead of stdout")
	generateCmd.Flags().BoolVar(&genCopy, "copy", false, "Copy the generated script to the clipboard (single path only)")
	generateCmd.Flags().IntVar(&genConcurrency, "concurrency", 4, "Maximum parallel submissions")

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
