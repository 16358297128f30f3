// Command abcedit inspects, round-trips and lists ABC bytecode documents,
// either bare .abc files or the DoABC tags of .swf movies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/editor"
)

var (
	configPath   string
	verbose      bool
	logLevel     string
	includeDebug bool
	sugarLocals  bool
	jobs         int

	cfg    *Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:               "abcedit",
	Short:             "Inspect and rewrite ActionScript Byte Code",
	Long:              `abcedit decodes ABC documents into an editable program, writes them back, and renders them as text listings.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: nearest "+configFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level to the console")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&includeDebug, "include-debug", false, "Keep debug instructions in listings")
	rootCmd.PersistentFlags().BoolVar(&sugarLocals, "sugar-locals", false, "Write getlocal/setlocal 0-3 in their short forms")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "Files processed in parallel")

	rootCmd.AddCommand(infoCmd, roundtripCmd, dumpCmd, browseCmd)
}

// setup loads the config, applies flag overrides and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	c, err := loadConfig(configPath, wd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("include-debug") {
		c.IncludeDebug = includeDebug
	}
	if flags.Changed("sugar-locals") {
		c.SugarLocals = sugarLocals
	}
	if flags.Changed("jobs") {
		if jobs < 1 {
			return fmt.Errorf("--jobs must be at least 1")
		}
		c.Jobs = jobs
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	cfg = c

	l, err := newLogger(verbose, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = l
	installLogger(logger)
	if cfg.Path != "" {
		logger.Debug("config loaded", zap.String("path", cfg.Path))
	}
	return nil
}

func encodeOptions() abc.EncodeOptions {
	return abc.EncodeOptions{SugarLocals: cfg.SugarLocals}
}

func documentOptions() []editor.Option {
	return []editor.Option{
		editor.WithLogger(logger),
		editor.WithIncludeDebug(cfg.IncludeDebug),
		editor.WithSugarLocals(cfg.SugarLocals),
	}
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
