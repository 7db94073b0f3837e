package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBackupCmd(a *app) *cobra.Command {
	var envFile string

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the member table to CSV",
		Long: `Write a verified CSV snapshot of the whole member table (deactivated
members included) to the backup directory. Nothing else is changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			creds, err := a.loadCredentials(envFile)
			if err != nil {
				return err
			}

			sess, err := a.connect(ctx, creds)
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := a.takeBackup(ctx, sess.repo, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Backup written: %s (%d members)\n", result.Path, result.Rows)
			return nil
		},
	}

	backupCmd.Flags().StringVar(&envFile, "env", "", "Credentials .env file (default from config)")
	return backupCmd
}
