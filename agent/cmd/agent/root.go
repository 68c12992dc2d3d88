package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "trainingpulse-agent",
		Short:         "Training compliance KPIs from participation and plan datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			slog.Debug("env file loaded", "path", envFile)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with secrets referenced by *_env config keys")

	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newRunCmd())
	return cmd
}
