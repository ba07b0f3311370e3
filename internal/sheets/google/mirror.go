package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"chitieu/internal/core"
	ports "chitieu/internal/sheets"
)

// Mirror rewrites one sheet per user with the user's expenses.
type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.SnapshotMirror = (*Mirror)(nil)

// New builds a mirror authorised with the OAuth client and token files
// produced by Authorize.
func New(ctx context.Context, spreadsheetID, sheetBase, clientFile, tokenFile string) (*Mirror, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	cfg, err := loadOAuthConfig(clientFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	// Token refreshes go through the pooled client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if sheetBase = strings.TrimSpace(sheetBase); sheetBase == "" {
		sheetBase = "Expenses"
	}
	return &Mirror{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// SheetName is the tab a user's snapshot is mirrored to.
func SheetName(base string, u core.User) string {
	who := strings.TrimSpace(u.Username)
	if who == "" {
		who = u.ID
	}
	return fmt.Sprintf("%s %s", base, who)
}

func (m *Mirror) Mirror(ctx context.Context, u core.User) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := SheetName(m.sheetBase, u)
	if err := m.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:F", sheet)
	if _, err := m.svc.Spreadsheets.Values.Clear(m.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := BuildRows(u)
	vr := &gsheet.ValueRange{Values: rows}
	start := fmt.Sprintf("'%s'!A1", sheet)
	if _, err := m.svc.Spreadsheets.Values.Update(m.spreadsheetID, start, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", start, err)
	}

	slog.InfoContext(ctx, "Snapshot mirrored to sheet",
		"component", "sheets",
		"sheet", sheet,
		"rows", len(rows),
		"user_id", u.ID)
	return nil
}

func (m *Mirror) ensureSheet(ctx context.Context, name string) error {
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
	}}}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

var header = []any{"ID", "Date", "Category", "Amount", "UID"}

// BuildRows renders the header, one row per expense ordered by date then id,
// and a trailing block with the limit and totals.
func BuildRows(u core.User) [][]any {
	exps := append([]core.Expense(nil), u.Expenses...)
	sort.SliceStable(exps, func(i, j int) bool {
		if !exps[i].Date.Equal(exps[j].Date.Time) {
			return exps[i].Date.Before(exps[j].Date.Time)
		}
		return exps[i].ID < exps[j].ID
	})

	names := make(map[string]string, len(u.Categories))
	for _, c := range u.Categories {
		names[c.ID] = c.Name
	}

	rows := make([][]any, 0, len(exps)+5)
	rows = append(rows, header)
	for _, e := range exps {
		name := names[e.Category]
		if name == "" {
			name = e.CategoryName
		}
		rows = append(rows, []any{e.ID, e.Date.String(), name, e.Amount, e.UID})
	}

	s := core.Summarize(u)
	rows = append(rows,
		[]any{},
		[]any{"Limit", "", "", s.Limit},
		[]any{"Spent", "", "", s.Spent},
		[]any{"Remaining", "", "", s.Remaining},
	)
	return rows
}
