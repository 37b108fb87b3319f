// Package cli wires the ime-tool command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abdullathedruid/ime-tool/internal/config"
	"github.com/abdullathedruid/ime-tool/internal/engine"
	"github.com/abdullathedruid/ime-tool/internal/inputsource"
	"github.com/abdullathedruid/ime-tool/internal/keyboard"
	"github.com/abdullathedruid/ime-tool/internal/logging"
	"github.com/abdullathedruid/ime-tool/internal/mode"
	"github.com/abdullathedruid/ime-tool/internal/retry"
	"github.com/abdullathedruid/ime-tool/internal/slot"
	"github.com/abdullathedruid/ime-tool/internal/version"
)

// Deps holds the platform collaborators. Tests replace them with fakes.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	NewRegistry     func(backend string) (inputsource.Registry, error)
	NewInjector     func() (keyboard.Injector, error)
	NewTypeDetector func() (keyboard.TypeDetector, error)

	// Sleep overrides the wait between switch checks.
	Sleep retry.Sleeper
}

// DefaultDeps returns the real platform collaborators.
func DefaultDeps() Deps {
	return Deps{
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		NewRegistry:     inputsource.New,
		NewInjector:     keyboard.NewInjector,
		NewTypeDetector: keyboard.NewTypeDetector,
		Sleep:           retry.Sleep,
	}
}

// app carries per-invocation state between cobra hooks and commands.
type app struct {
	deps   Deps
	viper  *viper.Viper
	cfg    *config.Config
	logger *log.Logger
	closer io.Closer
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, deps Deps) int {
	a := &app{deps: deps, logger: log.New(io.Discard)}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	err := root.ExecuteContext(context.Background())
	if a.closer != nil {
		defer a.closer.Close()
	}
	if err != nil {
		a.report(err)
		return 1
	}
	return 0
}

func (a *app) report(err error) {
	fmt.Fprintf(a.deps.Stderr, "Error: %v\n", err)

	var stacked *errors.Error
	if errors.As(err, &stacked) {
		a.logger.Error("command failed", "err", err, "stack", stacked.ErrorStack())
		return
	}
	a.logger.Error("command failed", "err", err)
}

func (a *app) rootCommand() *cobra.Command {
	a.viper = viper.New()

	root := &cobra.Command{
		Use:   "ime-tool [input-source-id]",
		Short: "Switch input methods in step with editor modes",
		Long: `ime-tool remembers one input method per editor mode and switches
between them. Slot A holds the insert-mode method, slot B the normal-mode one.

With no arguments it prints the active input method. With a single
identifier it switches straight to that method.`,
		Version:           version.Short(),
		Args:              cobra.MaximumNArgs(1),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.query(cmd)
			}
			return a.selectSource(cmd, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.Bool("debug", false, "write debug traces to the log file and stderr")
	flags.String("config", "", "config file (default is $XDG_CONFIG_HOME/ime-tool/config.yaml)")

	_ = a.viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = a.viper.BindPFlag("config", flags.Lookup("config"))
	a.viper.SetEnvPrefix("IME_TOOL")
	a.viper.AutomaticEnv()

	root.AddCommand(
		a.queryCommand(),
		a.listCommand(),
		a.saveCommand("save-to-a", "save-insert", mode.Insert),
		a.saveCommand("save-to-b", "save-normal", mode.Normal),
		a.enterCommand("enter-mode-1", "toggle-from-insert", mode.Normal),
		a.enterCommand("enter-mode-2", "toggle-from-normal", mode.Insert),
		a.toggleCommand(),
		a.selectCommand(),
		a.slotsCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads configuration and the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.Config
		err error
	)
	if path := a.viper.GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(logging.Options{
		Debug:  a.viper.GetBool("debug"),
		Path:   cfg.LogFile,
		Stderr: a.deps.Stderr,
	})
	if err != nil {
		return err
	}
	a.logger, a.closer = logger, closer
	a.logger.Debug("invoked", "command", cmd.CommandPath(), "state_dir", cfg.StateDir)
	return nil
}

func (a *app) store() *slot.Store {
	return slot.NewStore(a.cfg.StateDir, a.logger.WithPrefix("slot"))
}

// newEngine builds the engine from config. Keyboard collaborators are only
// built when forcing is set: commands that never switch pass false.
// When unavailable, forcing is skipped.
func (a *app) newEngine(forcing bool) (*engine.Engine, error) {
	registry, err := a.deps.NewRegistry(a.cfg.Backend)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		Registry: registry,
		Slots:    a.store(),
		Heuristic: keyboard.Heuristic{
			DualModeTypes:   a.cfg.Keyboard.DualMode,
			SingleModeTypes: a.cfg.Keyboard.SingleMode,
		},
		Force:    engine.ForceMode(a.cfg.ForceMode),
		Fallback: a.cfg.FallbackMethod,
		Retry: retry.Policy{
			Retries:  a.cfg.RetryCount(),
			Interval: a.cfg.SettleInterval(),
			Sleep:    a.deps.Sleep,
		},
		Logger: a.logger.WithPrefix("engine"),
	}

	if forcing && a.cfg.ForceMode != string(engine.ForceNever) {
		if inj, err := a.deps.NewInjector(); err != nil {
			a.logger.Debug("key injection unavailable", "err", err)
		} else {
			opts.Injector = inj
		}
		if det, err := a.deps.NewTypeDetector(); err != nil {
			a.logger.Debug("keyboard type detection unavailable", "err", err)
		} else {
			opts.Detector = det
		}
	}

	return engine.New(opts), nil
}
