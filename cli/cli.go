// Package cli provides the modloader command-line interface. It exports Run
// so wrapper binaries can embed the loader with their own argument handling.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kyriji/modloader/internal/config"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// Run executes the CLI with the given arguments and returns the process exit
// code (0 = success, non-zero = error).
func Run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modloader:", err)
		return 1
	}
	return 0
}

// flags are the persistent options shared by every command. Flag values
// override the config file, which overrides the defaults.
type flags struct {
	configPath string
	modulesDir string
	extension  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &flags{}

	root := &cobra.Command{
		Use:           "modloader",
		Short:         "Discover, resolve, and activate module artifacts",
		Long:          "modloader discovers .zmod artifacts in a directory, resolves their declared dependencies, and activates each module's entry point in dependency order inside an isolated Lua scope.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	pf.StringVar(&opts.modulesDir, "modules", "", "directory scanned for module artifacts")
	pf.StringVar(&opts.extension, "extension", "", "artifact file extension")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newLoadCmd(opts),
		newListCmd(opts),
		newPackCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// setup resolves the effective config and builds the logger.
func setup(opts *flags) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.modulesDir != "" {
		cfg.Modules.Dir = opts.modulesDir
	}
	if opts.extension != "" {
		cfg.Modules.Extension = opts.extension
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "modloader",
	})
	return cfg, logger, nil
}

// ensureModulesDir creates the modules directory if it does not exist, like
// the scan expects. Failure here is a driver-level error, not module-scoped.
func ensureModulesDir(dir string, logger *log.Logger) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	case os.IsNotExist(err):
		logger.Info("creating modules directory", "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating modules directory %s: %w", dir, err)
		}
		return nil
	default:
		return fmt.Errorf("checking modules directory %s: %w", dir, err)
	}
}
