package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chitieu/internal/core"
	"chitieu/internal/events"
	"chitieu/internal/remote/memory"
	"chitieu/internal/services"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session against the in-process remote",
	Long: `Start an interactive session. The in-process remote is seeded with the demo
account (` + memory.DemoEmail + ` / ` + memory.DemoPassword + `). Use "offline" and "online" to
simulate connectivity changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, err := openBackend(ctx, true)
		if err != nil {
			return err
		}
		defer res.Cleanup()

		out := cmd.OutOrStdout()
		res.Bus.Subscribe(events.SyncCompleted, func(context.Context, events.Event) error {
			fmt.Fprintln(out, "[sync] local data refreshed from the server")
			return nil
		})
		res.Bus.Subscribe(events.SyncFailed, func(_ context.Context, e events.Event) error {
			fmt.Fprintf(out, "[sync] failed: %v\n", e.Data["error"])
			return nil
		})

		engine := services.NewEngine(res.Remote, res.Cache,
			services.WithEvents(res.Publisher),
			services.WithMirror(res.Mirror),
			services.WithLogger(logger),
			services.WithConfig(services.EngineConfig{ReconnectSyncDelay: appConfig.ReconnectSyncDelay}))
		defer engine.Close()

		if u, ok, err := engine.Restore(ctx); err != nil {
			logger.Warn("Restore failed", "error", err)
		} else if ok {
			fmt.Fprintf(out, "Restored cached session for %s\n", u.DisplayName())
		}
		return runShell(ctx, engine, res.Remote, cmd.InOrStdin(), out)
	},
}

type shell struct {
	engine  *services.Engine
	remote  *memory.Store
	in      io.Reader
	scanner *bufio.Scanner
	out     io.Writer
}

// runShell reads one command per line until EOF or "quit".
func runShell(ctx context.Context, e *services.Engine, rs *memory.Store, in io.Reader, out io.Writer) error {
	sh := &shell{engine: e, remote: rs, in: in, scanner: bufio.NewScanner(in), out: out}
	fmt.Fprintln(out, `Type "help" for commands.`)
	for {
		fmt.Fprint(out, sh.prompt())
		if !sh.scanner.Scan() {
			fmt.Fprintln(out)
			return sh.scanner.Err()
		}
		fields := strings.Fields(sh.scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := sh.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(out, "error: %s\n", core.ResultOf(err, "").Message)
		}
	}
}

func (s *shell) prompt() string {
	u, ok := s.engine.Snapshot()
	status := "online"
	if !s.remote.IsOnline() {
		status = "offline"
	}
	if !ok {
		return fmt.Sprintf("[%s] > ", status)
	}
	return fmt.Sprintf("[%s %s] > ", u.Email, status)
}

func (s *shell) exec(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		s.help()
	case "login":
		if len(args) < 1 {
			return errors.New("usage: login <email>")
		}
		pw, err := s.password("Password: ")
		if err != nil {
			return err
		}
		u, err := s.engine.Login(ctx, args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Welcome, %s\n", u.DisplayName())
	case "register":
		if len(args) < 2 {
			return errors.New("usage: register <email> <username> [name...]")
		}
		pw, err := s.password("Password: ")
		if err != nil {
			return err
		}
		u, err := s.engine.Register(ctx, services.RegisterInput{
			Email:    args[0],
			Username: args[1],
			Name:     strings.Join(args[2:], " "),
			Password: pw,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Account created for %s\n", u.Email)
	case "logout":
		if err := s.engine.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Logged out")
	case "whoami":
		u, ok := s.engine.Snapshot()
		if !ok {
			return core.ErrNotLoggedIn
		}
		fmt.Fprintf(s.out, "%s [%s] %s (%s) state=%s\n", u.Initials(), u.ID, u.DisplayName(), u.Email, s.engine.State())
	case "list":
		return s.list()
	case "add":
		return s.add(ctx, args)
	case "edit":
		if len(args) < 2 {
			return errors.New("usage: edit <id|uid> <amount>")
		}
		exp, p, err := s.engine.EditExpense(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		s.saved(fmt.Sprintf("Expense #%d is now %s", exp.ID, core.FormatAmount(exp.Amount)), p)
	case "del":
		if len(args) != 1 {
			return errors.New("usage: del <id|uid>")
		}
		p, err := s.engine.DeleteExpense(ctx, args[0])
		if err != nil {
			return err
		}
		s.saved("Expense deleted", p)
	case "cats":
		return s.categories()
	case "icon":
		if len(args) != 1 {
			return errors.New("usage: icon <fa-name>")
		}
		return s.engine.SelectIcon(args[0])
	case "cat-add":
		c, p, err := s.engine.AddCategory(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		s.saved(fmt.Sprintf("Category %s (%s) added", c.Name, c.ID), p)
	case "cat-del":
		if len(args) != 1 {
			return errors.New("usage: cat-del <category-id>")
		}
		p, err := s.engine.DeleteCategory(ctx, args[0])
		if err != nil {
			return err
		}
		s.saved("Category deleted", p)
	case "limit":
		limit, p, err := s.engine.SetLimit(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		s.saved("Monthly limit set to "+core.FormatAmount(limit), p)
	case "summary":
		u, ok := s.engine.Snapshot()
		if !ok {
			return core.ErrNotLoggedIn
		}
		printSummary(s.out, u)
	case "profile":
		if len(args) < 3 {
			return errors.New("usage: profile <email> <username> <name...>")
		}
		_, p, err := s.engine.UpdateProfile(ctx, core.ProfileUpdate{
			Email:    args[0],
			Username: args[1],
			Name:     strings.Join(args[2:], " "),
		})
		if err != nil {
			return err
		}
		s.saved("Profile updated", p)
	case "passwd":
		current, err := s.password("Current password: ")
		if err != nil {
			return err
		}
		next, err := s.password("New password: ")
		if err != nil {
			return err
		}
		confirm, err := s.password("Confirm new password: ")
		if err != nil {
			return err
		}
		if err := s.engine.ChangePassword(ctx, current, next, confirm); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Password changed")
	case "avatar":
		return s.avatar(ctx, args)
	case "delete-account":
		pw, err := s.password("Password: ")
		if err != nil {
			return err
		}
		if err := s.engine.DeleteAccount(ctx, pw); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Account deleted")
	case "offline":
		s.remote.SetOnline(false)
	case "online":
		s.remote.SetOnline(true)
	case "sync":
		if err := s.engine.SyncNow(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", name)
	}
	return nil
}

func (s *shell) add(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: add <category-id> <amount> [YYYY-MM-DD]")
	}
	date := core.Today()
	amountArgs := args[1:]
	if len(args) > 2 {
		if d, err := core.ParseDate(args[len(args)-1]); err == nil {
			date = d
			amountArgs = args[1 : len(args)-1]
		}
	}
	exp, p, err := s.engine.AddExpense(ctx, core.NewExpense{
		Category: args[0],
		Amount:   strings.Join(amountArgs, " "),
		Date:     date,
	})
	if err != nil {
		return err
	}
	s.saved(fmt.Sprintf("Expense #%d: %s on %s (%s)", exp.ID, core.FormatAmount(exp.Amount), exp.CategoryName, exp.Date), p)
	return nil
}

func (s *shell) avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: avatar <image-file|none>")
	}
	if args[0] == "none" {
		p, err := s.engine.RemoveAvatar(ctx)
		if err != nil {
			return err
		}
		s.saved("Avatar removed", p)
		return nil
	}
	img, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	url, p, err := s.engine.UploadAvatar(ctx, img)
	if err != nil {
		return err
	}
	s.saved("Avatar uploaded to "+url, p)
	return nil
}

func (s *shell) list() error {
	u, ok := s.engine.Snapshot()
	if !ok {
		return core.ErrNotLoggedIn
	}
	if len(u.Expenses) == 0 {
		fmt.Fprintln(s.out, "No expenses yet")
		return nil
	}
	for _, e := range u.Expenses {
		fmt.Fprintf(s.out, "#%-4d %s  %-18s %14s  %s\n", e.ID, e.Date, e.CategoryName, core.FormatAmount(e.Amount), e.UID)
	}
	return nil
}

func (s *shell) categories() error {
	u, ok := s.engine.Snapshot()
	if !ok {
		return core.ErrNotLoggedIn
	}
	for _, c := range u.Categories {
		fmt.Fprintf(s.out, "%-20s %-20s %s\n", c.ID, c.Name, c.Icon)
	}
	fmt.Fprintf(s.out, "next icon: %s\n", s.engine.SelectedIcon())
	return nil
}

func (s *shell) saved(msg string, p services.Persistence) {
	switch p.Outcome {
	case services.OutcomeOffline:
		msg += " (offline, will sync later)"
	case services.OutcomeFailed:
		msg += " (saved locally only)"
	}
	fmt.Fprintln(s.out, msg)
}

// password reads without echo from a terminal and falls back to the next
// input line for pipes.
func (s *shell) password(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(s.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	fmt.Fprintln(s.out)
	return s.scanner.Text(), nil
}

func (s *shell) help() {
	fmt.Fprint(s.out, `Commands:
  login <email>                       register <email> <username> [name...]
  logout | whoami | summary | list    add <category-id> <amount> [YYYY-MM-DD]
  edit <id|uid> <amount>              del <id|uid>
  cats | icon <fa-name>               cat-add <name...> | cat-del <id>
  limit [amount]                      profile <email> <username> <name...>
  passwd | delete-account             avatar <image-file|none>
  offline | online | sync             quit
`)
}
