package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chitieu/internal/core"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [user-id]",
	Short: "Summarize a cached snapshot (defaults to the last user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer res.Cleanup()

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else if id, err = res.Cache.LastUser(ctx); err != nil {
			return err
		}
		if id == "" {
			return errors.New("no user id given and no last user remembered")
		}
		u, err := res.Cache.Load(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no cached snapshot for %s", id)
		}
		printSummary(cmd.OutOrStdout(), *u)
		return nil
	},
}

func printSummary(w io.Writer, u core.User) {
	s := core.Summarize(u)
	fmt.Fprintf(w, "%s (%s)\n", u.DisplayName(), u.Email)
	if s.Limit > 0 {
		fmt.Fprintf(w, "  Limit:     %s\n", core.FormatAmount(s.Limit))
	} else {
		fmt.Fprintln(w, "  Limit:     not set")
	}
	fmt.Fprintf(w, "  Spent:     %s in %d expenses\n", core.FormatAmount(s.Spent), s.Count)
	if s.Limit > 0 {
		fmt.Fprintf(w, "  Remaining: %s\n", core.FormatAmount(s.Remaining))
		if s.OverLimit() {
			fmt.Fprintln(w, "  Over the monthly limit!")
		}
	}
	for _, c := range s.ByCategory {
		fmt.Fprintf(w, "    %-20s %s\n", c.Name, core.FormatAmount(c.Amount))
	}
}
