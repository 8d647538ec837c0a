package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kyriji/modloader/internal/artifact"
	"github.com/kyriji/modloader/internal/engine"
	"github.com/kyriji/modloader/internal/mcpserver"
	"github.com/kyriji/modloader/internal/registry"
	"github.com/kyriji/modloader/internal/resolver"
)

// newLoadCmd scans the modules directory and activates everything found.
// Per-module failures are logged and do not fail the process; only
// driver-level failures (bad config, unusable directory) do.
func newLoadCmd(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Scan the modules directory and activate all modules in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			if err := ensureModulesDir(cfg.Modules.Dir, logger); err != nil {
				logger.Error("cannot prepare modules directory", "err", err)
				return err
			}

			reg := registry.New(logger)
			if err := reg.Scan(cfg.Modules.Dir, cfg.Modules.Extension); err != nil {
				logger.Error("scan failed", "err", err)
				return err
			}

			res := resolver.New(reg, engine.New(logger), logger)
			errs := res.ActivateAll()
			logger.Info("activation complete",
				"modules", reg.Len(), "failed", len(errs))
			return nil
		},
	}
}

// newListCmd scans and prints the registry without activating anything.
func newListCmd(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Scan the modules directory and print every registered module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}

			reg := registry.New(logger)
			if err := reg.Scan(cfg.Modules.Dir, cfg.Modules.Extension); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range reg.Names() {
				mod, _ := reg.Get(name)
				fmt.Fprintf(out, "%s\t%s\tentry=%s\tdeps=%v\n",
					mod.Name, mod.ArtifactPath, mod.EntryPoint, mod.Dependencies)
			}
			return nil
		},
	}
}

// newPackCmd builds a .zmod artifact from a source directory. Artifact
// production is the build step that feeds the loader.
func newPackCmd(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <source-dir> <output.zmod>",
		Short: "Build a module artifact from a directory containing manifest.toml and Lua sources",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup(opts)
			if err != nil {
				return err
			}
			if err := artifact.Pack(args[0], args[1]); err != nil {
				logger.Error("pack failed", "err", err)
				return err
			}
			logger.Info("artifact packed", "source", args[0], "artifact", args[1])
			return nil
		},
	}
}

// newMCPCmd scans the modules directory and serves the registry over MCP on
// stdio. Activation happens only when the client calls the activate tool.
func newMCPCmd(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scanned registry over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			if err := ensureModulesDir(cfg.Modules.Dir, logger); err != nil {
				return err
			}

			reg := registry.New(logger)
			if err := reg.Scan(cfg.Modules.Dir, cfg.Modules.Extension); err != nil {
				return err
			}

			res := resolver.New(reg, engine.New(logger), logger)
			return mcpserver.New(reg, res, Version).ServeStdio()
		},
	}
}
