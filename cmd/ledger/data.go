package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/backup"
	"ledger/internal/bundle"
	"ledger/internal/config"

	"github.com/spf13/cobra"
)

// warnEphemeral reminds the operator that the memory backend forgets
// everything when the command exits.
func warnEphemeral() {
	if appCfg.DataBackend == config.BackendMemory {
		logger.Warn("Using the memory backend: changes are discarded when the command exits")
	}
}

func signupCmd() *cobra.Command {
	var name, email, secret string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			warnEphemeral()
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				u, err := b.Users.Signup(cmd.Context(), name, email, secret)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&secret, "secret", "", "login secret")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func importCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace a user's data with an exported document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnEphemeral()
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				summary, err := b.Ledger.ReconcileJSON(cmd.Context(), userID, in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "transactions imported: %d\n", summary.TransactionsImported)
				fmt.Fprintf(out, "obligations imported:  %d\n", summary.ObligationsImported)
				fmt.Fprintf(out, "categories created:    %d\n", summary.NewCategoriesCreated)
				for _, w := range summary.Warnings {
					fmt.Fprintf(out, "warning: %v\n", w)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "target user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func exportCmd() *cobra.Command {
	var userID, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's data as a backup document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				doc, err := b.Ledger.Export(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return bundle.Encode(cmd.OutOrStdout(), doc)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				if err := bundle.Encode(f, doc); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func backupCmd() *cobra.Command {
	var userIDs []string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Store backups in the configured directory or bucket",
		Long:  "Backs up the given users, or every registered user when --user is omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				ids := userIDs
				if len(ids) == 0 {
					users, err := b.Store.ListUsers(cmd.Context())
					if err != nil {
						return fmt.Errorf("list users: %w", err)
					}
					for _, u := range users {
						ids = append(ids, u.ID)
					}
				}
				now := time.Now().UTC()
				for _, id := range ids {
					location, err := backup.Run(cmd.Context(), b.Ledger, b.Backups, id, now)
					if err != nil {
						return fmt.Errorf("user %s: %w", id, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), location)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&userIDs, "user", nil, "user ids to back up (default all)")
	return cmd
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
