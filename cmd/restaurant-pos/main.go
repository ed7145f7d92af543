package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"restaurant-pos/internal/common/config"
)

var (
	configPath string
	cfg        *config.App

	rootCmd = &cobra.Command{
		Use:           "restaurant-pos",
		Short:         "Point of sale for a single restaurant: tables, tickets, billing and cash cuts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == hashPINCmd.Name() {
				return nil
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = loaded
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, printerCmd, syncCmd, hashPINCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
