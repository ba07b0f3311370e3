package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chitieu/internal/storage"
)

var clearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local snapshot cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print a cached snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer res.Cleanup()

		u, err := res.Cache.Load(ctx, args[0])
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no cached snapshot for %s", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(u)
	},
}

var cacheUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List cached users, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer res.Cleanup()
		if res.Repository == nil {
			return errors.New("listing users needs the sqlite cache backend")
		}

		ids, err := res.Repository.Users(ctx)
		if err != nil {
			return err
		}
		last, err := res.Cache.LastUser(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			marker := " "
			if id == last {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [user-id]",
	Short: "Remove a cached snapshot, or everything with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if clearAll {
			if err := appConfig.Validate(); err != nil {
				return err
			}
			if appConfig.CacheBackend != "sqlite" {
				return errors.New("--all needs the sqlite cache backend")
			}
			if err := storage.ResetSchema(appConfig.SQLiteDBPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache reset")
			return nil
		}
		if len(args) == 0 {
			return errors.New("give a user id or --all")
		}

		res, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer res.Cleanup()
		if err := res.Cache.Clear(ctx, args[0]); err != nil {
			return err
		}
		if last, _ := res.Cache.LastUser(ctx); last == args[0] {
			if err := res.Cache.ClearLastUser(ctx); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&clearAll, "all", false, "Drop every snapshot and pointer")
	cacheCmd.AddCommand(cacheShowCmd, cacheUsersCmd, cacheClearCmd)
}
