package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfsync/internal/syncstate"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset per-account sync state",
	}

	stateCmd.AddCommand(newStateShowCommand(ctx))
	stateCmd.AddCommand(newStateClearCommand(ctx))

	return stateCmd
}

func newStateShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the last recorded sync per account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			states := syncstate.NewStore(cfg.StateDir(), logger)

			rows := make([][]string, 0, len(cfg.Accounts))
			for _, account := range cfg.Accounts {
				state, err := states.Load(account.Name)
				if err != nil {
					return fmt.Errorf("load state for %q: %w", account.Name, err)
				}
				if state == nil {
					rows = append(rows, []string{account.Name, "never synced", "-", "-"})
					continue
				}
				rows = append(rows, []string{
					account.Name,
					state.LastSyncTimestamp,
					fmt.Sprintf("%d", state.LastBookCount),
					shortHash(state.LastHash),
				})
			}

			table := renderTable(
				[]string{"Account", "Last Sync", "Books", "Fingerprint"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newStateClearCommand(ctx *commandContext) *cobra.Command {
	var accountName string
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the last sync so the next run uploads unconditionally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			states := syncstate.NewStore(cfg.StateDir(), logger)
			out := cmd.OutOrStdout()

			if all {
				for _, account := range cfg.Accounts {
					if err := states.Clear(account.Name); err != nil {
						return fmt.Errorf("clear state for %q: %w", account.Name, err)
					}
					fmt.Fprintf(out, "Cleared sync state for %s\n", account.Name)
				}
				return nil
			}

			account, err := cfg.Account(accountName)
			if err != nil {
				return err
			}
			if err := states.Clear(account.Name); err != nil {
				return fmt.Errorf("clear state for %q: %w", account.Name, err)
			}
			fmt.Fprintf(out, "Cleared sync state for %s\n", account.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountName, "account", "", "Account whose state should be cleared")
	cmd.Flags().BoolVar(&all, "all", false, "Clear state for every configured account")
	return cmd
}

// shortHash trims a content hash for table display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
