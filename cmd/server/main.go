package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	addrFlag   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("quizly: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("QUIZLY_CONFIG")
	cmd := &cobra.Command{
		Use:           "quizly",
		Short:         "Quiz authoring and response collection API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configPath, addrFlag)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "listen address, overrides QUIZLY_ADDR")
	cmd.AddCommand(newServeCmd(), newMigrateCmd())
	return cmd
}
