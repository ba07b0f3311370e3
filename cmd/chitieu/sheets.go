package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chitieu/internal/sheets"
	gsheet "chitieu/internal/sheets/google"
)

var oauthPort string

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Google Sheets mirror tools",
}

var sheetsAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run the OAuth consent flow and save a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.GoogleOAuthClientFile == "" {
			return errors.New("set GOOGLE_OAUTH_CLIENT_FILE")
		}
		return gsheet.Authorize(cmd.Context(), appConfig.GoogleOAuthClientFile, appConfig.GoogleOAuthTokenFile, oauthPort, cmd.OutOrStdout())
	},
}

var sheetsPushCmd = &cobra.Command{
	Use:   "push [user-id]",
	Short: "Mirror a cached snapshot to the spreadsheet now",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !appConfig.SheetsEnabled() {
			return errors.New("set GOOGLE_SPREADSHEET_ID to enable the mirror")
		}
		res, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer res.Cleanup()
		if _, disabled := res.Mirror.(sheets.Nop); disabled {
			return errors.New("the sheets mirror could not be initialized, see the log")
		}

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else if id, err = res.Cache.LastUser(ctx); err != nil {
			return err
		}
		u, err := res.Cache.Load(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no cached snapshot for %q", id)
		}
		if err := res.Mirror.Mirror(ctx, *u); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d expenses to %s\n", len(u.Expenses), gsheet.SheetName(appConfig.GoogleSheetName, *u))
		return nil
	},
}

func init() {
	sheetsAuthCmd.Flags().StringVar(&oauthPort, "port", "8085", "Local port for the OAuth redirect")
	sheetsCmd.AddCommand(sheetsAuthCmd, sheetsPushCmd)
}
