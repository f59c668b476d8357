package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tomoprep/internal/app"
	"tomoprep/pkg/center"
	"tomoprep/pkg/config"
	"tomoprep/pkg/logging"
	"tomoprep/pkg/projection"
	"tomoprep/pkg/session"
	"tomoprep/pkg/tilt"
)

// options are the flags shared by every command
type options struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "tomoprep",
		Short: "Tomography preprocessing: center of rotation and tilt correction",
		Long: `tomoprep finds the center of rotation of a tomography scan from its 0 and 180
degree projections, lets the user override it, and saves the result as a
session that a later run restores exactly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			if opts.logFormat != "" {
				cfg.Logging.Format = opts.logFormat
			}
			opts.cfg = cfg
			opts.log = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "tomoprep.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newFilesCmd(opts))
	rootCmd.AddCommand(newCenterCmd(opts))
	rootCmd.AddCommand(newRestoreCmd(opts))
	rootCmd.AddCommand(newTiltCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

func newFilesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "files <projection_directory>",
		Short: "List the projections and the angles read from their names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := projection.OpenDir(args[0], opts.cfg.Projections.Extensions)
			if err != nil {
				return err
			}
			for _, p := range projection.Describe(loader.Files()) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newCenterCmd(opts *options) *cobra.Command {
	var (
		strategy string
		manual   int
		index0   int
		index180 int
		disable  bool
		preview  string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "center <projection_directory>",
		Short: "Resolve the center of rotation",
		Long: `Load the projections, pick the 0 and 180 degree pair and resolve the center of
rotation, either by phase correlation or from a manual value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts.cfg, opts.log, args[0], nil)
			if err != nil {
				return err
			}
			if err := a.Initialize(); err != nil {
				return err
			}

			r := a.Center
			if cmd.Flags().Changed("index0") || cmd.Flags().Changed("index180") {
				pair := r.Pair()
				if cmd.Flags().Changed("index0") {
					pair.Index0 = index0
				}
				if cmd.Flags().Changed("index180") {
					pair.Index180 = index180
				}
				if err := r.SetPair(pair); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("manual") {
				if err := r.SetManualValue(manual); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("strategy") {
				s, err := center.ParseStrategy(strategy)
				if err != nil {
					return err
				}
				if err := r.SetStrategy(s); err != nil {
					return err
				}
			}
			if disable {
				if err := r.SetEnabled(false); err != nil {
					return err
				}
			}

			if err := printCenter(cmd, r); err != nil {
				return err
			}
			if preview != "" {
				if err := a.CenterPreview.Save(preview); err != nil {
					return fmt.Errorf("failed to save preview: %w", err)
				}
			}
			if save {
				return saveSession(opts, a)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "automatic or manual (default from config)")
	cmd.Flags().IntVar(&manual, "manual", 0, "manual center of rotation in pixels")
	cmd.Flags().IntVar(&index0, "index0", 0, "file index of the 0 degree projection")
	cmd.Flags().IntVar(&index180, "index180", 0, "file index of the 180 degree projection")
	cmd.Flags().BoolVar(&disable, "disable", false, "switch center of rotation off")
	cmd.Flags().StringVar(&preview, "preview", "", "write the composite preview with the marker to this file")
	cmd.Flags().BoolVar(&save, "save", false, "save the session")

	return cmd
}

func newRestoreCmd(opts *options) *cobra.Command {
	var (
		dir     string
		preview string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the saved session and resolve its center of rotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.Open(opts.cfg.Session)
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.Load()
			if errors.Is(err, session.ErrNoSession) {
				return fmt.Errorf("nothing to restore from %s", opts.cfg.Session.Path)
			}
			if err != nil {
				return err
			}
			if dir != "" {
				doc.Projections = dir
			}

			a, err := app.New(opts.cfg, opts.log, doc.Projections, nil)
			if err != nil {
				return err
			}
			if err := a.Restore(doc); err != nil {
				return err
			}

			if err := printCenter(cmd, a.Center); err != nil {
				return err
			}
			if preview != "" {
				return a.CenterPreview.Save(preview)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "projection directory (default: the one stored in the session)")
	cmd.Flags().StringVar(&preview, "preview", "", "write the composite preview with the marker to this file")

	return cmd
}

func newTiltCmd(opts *options) *cobra.Command {
	var (
		index     int
		algorithm string
		preview   string
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "tilt <projection_directory>",
		Short: "Inspect a projection and run the selected tilt algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts.cfg, opts.log, args[0], nil)
			if err != nil {
				return err
			}
			if err := a.Initialize(); err != nil {
				return err
			}

			h := a.Tilt
			if err := h.SelectFile(index); err != nil {
				return err
			}
			dims := h.Dimensions()
			fmt.Fprintf(cmd.OutOrStdout(), "Projection %d of %d, %dx%d pixels\n", index, h.MaxIndex()+1, dims.Width, dims.Height)

			if algorithm != "" {
				alg, err := tilt.ParseAlgorithm(algorithm)
				if err != nil {
					return err
				}
				h.SetEnabled(true)
				value, err := h.SetAlgorithm(alg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tilt (%s): %.4f deg\n", alg, value)
			}

			if preview != "" {
				if err := a.TiltPreview.Save(preview); err != nil {
					return fmt.Errorf("failed to save preview: %w", err)
				}
			}
			if save {
				return saveSession(opts, a)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "file index to inspect")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "direct minimization, phase correlation or use center")
	cmd.Flags().StringVar(&preview, "preview", "", "write the projection to this file")
	cmd.Flags().BoolVar(&save, "save", false, "save the session")

	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	})

	return cmd
}

func printCenter(cmd *cobra.Command, r *center.Resolver) error {
	value, ok, err := r.Resolve()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Center of rotation: disabled")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Center of rotation (%s): %d\n", r.Strategy(), value)
	return nil
}

func saveSession(opts *options, a *app.App) error {
	store, err := session.Open(opts.cfg.Session)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(a.Document()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	opts.log.Info("saved session", "backend", opts.cfg.Session.Backend, "path", opts.cfg.Session.Path)
	return nil
}
