package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdullathedruid/ime-tool/internal/engine"
	"github.com/abdullathedruid/ime-tool/internal/mode"
	"github.com/abdullathedruid/ime-tool/internal/slot"
	"github.com/abdullathedruid/ime-tool/internal/version"
)

func (a *app) queryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Print the active input method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd)
		},
	}
}

// query prints the active identifier, or nothing when the OS reports none.
func (a *app) query(cmd *cobra.Command) error {
	e, err := a.newEngine(false)
	if err != nil {
		return err
	}
	id, err := e.Current()
	if err != nil {
		return err
	}
	if id != "" {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed input methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.newEngine(false)
			if err != nil {
				return err
			}
			sources, err := e.List()
			if err != nil {
				return err
			}
			for _, s := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), s.String())
			}
			return nil
		},
	}
}

func (a *app) saveCommand(use, alias string, m mode.Mode) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: []string{alias},
		Short:   fmt.Sprintf("Save the active input method to slot %s (%s mode)", m.Slot(), m),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.newEngine(false)
			if err != nil {
				return err
			}
			res, err := e.Save(cmd.Context(), m)
			a.logResult(cmd, res)
			return err
		},
	}
}

func (a *app) enterCommand(use, alias string, m mode.Mode) *cobra.Command {
	short := fmt.Sprintf("Save the active method to slot %s and switch to slot %s", m.Other().Slot(), m.Slot())
	if m.UsesFallback() {
		short += " or the fallback"
	}
	return &cobra.Command{
		Use:     use,
		Aliases: []string{alias},
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.newEngine(true)
			if err != nil {
				return err
			}
			res, err := e.Enter(cmd.Context(), m)
			a.logResult(cmd, res)
			return err
		},
	}
}

func (a *app) toggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Switch between the methods saved in slots A and B",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.newEngine(true)
			if err != nil {
				return err
			}
			res, err := e.Toggle(cmd.Context())
			a.logResult(cmd, res)
			return err
		},
	}
}

func (a *app) selectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select <input-source-id>",
		Short: "Switch to an input method by identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.selectSource(cmd, args[0])
		},
	}
}

func (a *app) selectSource(cmd *cobra.Command, id string) error {
	e, err := a.newEngine(true)
	if err != nil {
		return err
	}
	res, err := e.Select(cmd.Context(), id)
	a.logResult(cmd, res)
	return err
}

func (a *app) slotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "Print the saved slot contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.store()
			for _, name := range []string{slot.A, slot.B} {
				id, ok := store.Read(name)
				if !ok {
					id = "(empty)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, id)
			}
			return nil
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ime-tool %s\n", version.Full())
			return nil
		},
	}
}

func (a *app) logResult(cmd *cobra.Command, res engine.Result) {
	a.logger.Debug("done",
		"command", cmd.Name(),
		"reason", res.Plan.Reason,
		"written", len(res.Written),
		"switched", res.Switched,
		"forced_key", res.ForcedKey,
	)
}
