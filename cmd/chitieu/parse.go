package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chitieu/internal/core"
)

var parseCmd = &cobra.Command{
	Use:   "parse <amount>",
	Short: "Show how a free-form amount is read",
	Long:  `Parse an amount such as "1.500k", "2tr" or "3,5m" the same way expense and limit input is parsed.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := strings.Join(args, " ")
		amount := core.ParseAmount(in)
		fmt.Fprintf(cmd.OutOrStdout(), "%q = %d (%s)\n", in, amount, core.FormatAmount(amount))
	},
}
