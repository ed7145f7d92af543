package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"restaurant-pos/internal/auth"
)

var hashPINCmd = &cobra.Command{
	Use:   "hash-pin <pin>",
	Short: "Print the pin_hash value for a user in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := auth.HashPIN(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}
