package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hustlehub/hustle-hub-app/internal/bootstrap"
	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
	"github.com/hustlehub/hustle-hub-app/internal/nav"
	"github.com/hustlehub/hustle-hub-app/internal/service"
	"github.com/hustlehub/hustle-hub-app/internal/util"
)

var errQuit = errors.New("quit")

type commandFn func(ctx context.Context, sh *shell, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

func commands() map[string]command {
	return map[string]command{
		"whoami": {
			name:        "whoami",
			description: "Show the current session identity",
			run:         runWhoami,
		},
		"login": {
			name:        "login",
			usage:       "<email> <password>",
			description: "Log in with email and password",
			run:         runLogin,
		},
		"register": {
			name:        "register",
			usage:       "<username> <email> <password> [applicant|employer]",
			description: "Create an account and log in",
			run:         runRegister,
		},
		"logout": {
			name:        "logout",
			description: "Log out (local session is always cleared)",
			run:         runLogout,
		},
		"go": {
			name:        "go",
			usage:       "<path>",
			description: "Navigate to a page, following guard redirects",
			run:         runGo,
		},
		"refresh": {
			name:        "refresh",
			description: "Re-check the session with the server",
			run:         runRefresh,
		},
		"help": {
			name:        "help",
			description: "List commands",
			run:         runHelp,
		},
		"quit": {
			name:        "quit",
			description: "Exit",
			run:         func(context.Context, *shell, []string) error { return errQuit },
		},
	}
}

// shell is a line-oriented front end over the session core.
type shell struct {
	c   *bootstrap.Container
	in  io.Reader
	out io.Writer

	mu sync.Mutex
}

func newShell(c *bootstrap.Container, in io.Reader, out io.Writer) *shell {
	return &shell{c: c, in: in, out: out}
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

// repl runs commands until quit, end of input or ctx ends.
func (sh *shell) repl(ctx context.Context) error {
	lines := readLines(ctx, sh.in)
	cmds := commands()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			cmd, found := cmds[fields[0]]
			if !found {
				sh.printf("unknown command %q (try help)\n", fields[0])
				continue
			}
			err := cmd.run(ctx, sh, fields[1:])
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				sh.printf("error: %s\n", err)
			}
		}
	}
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// printIdentities reports every identity change until ctx ends.
func (sh *shell) printIdentities(ctx context.Context) error {
	sub := sh.c.Session.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-sub.C():
			if !ok {
				return nil
			}
			sh.printf("[session] %s\n", id)
		}
	}
}

func runWhoami(_ context.Context, sh *shell, _ []string) error {
	sh.printf("%s\n", sh.c.Session.Current())
	return nil
}

func runLogin(ctx context.Context, sh *shell, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	user, err := sh.c.Auth.Login(ctx, domainauth.LoginInput{Email: args[0], Password: args[1]})
	if err != nil {
		sh.printf("login failed: %s\n", apperrors.Reason(err, service.ReasonLoginFailed))
		return nil
	}
	sh.printf("welcome, %s (%s)\n", user.Username, user.Role)
	return nil
}

func runRegister(ctx context.Context, sh *shell, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: register <username> <email> <password> [applicant|employer]")
	}
	in := domainauth.RegisterInput{Username: args[0], Email: args[1], Password: args[2]}
	if len(args) == 4 {
		in.Role = domainauth.Role(strings.ToLower(args[3]))
	}

	user, err := sh.c.Auth.Register(ctx, in)
	if err != nil {
		sh.printf("registration failed: %s\n", apperrors.Reason(err, service.ReasonRegistrationFailed))
		return nil
	}
	sh.printf("registered %s (%s)\n", user.Username, user.Role)
	return nil
}

func runLogout(ctx context.Context, sh *shell, _ []string) error {
	sh.c.Auth.Logout(ctx)
	sh.printf("logged out\n")
	return nil
}

func runGo(ctx context.Context, sh *shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: go <path>")
	}
	res, err := sh.c.Router.Navigate(ctx, args[0])
	if err != nil {
		if errors.Is(err, nav.ErrSuperseded) {
			return nil
		}
		return err
	}
	if len(res.Redirects) > 0 {
		sh.printf("%s (redirected from %s)\n", res.Path, args[0])
		return nil
	}
	sh.printf("%s\n", res.Path)
	return nil
}

func runRefresh(ctx context.Context, sh *shell, _ []string) error {
	start := time.Now()
	id, err := sh.c.Session.Refresh(ctx)
	if err != nil {
		return err
	}
	sh.printf("%s (%s)\n", id, util.FormatDuration(time.Since(start)))
	return nil
}

func runHelp(_ context.Context, sh *shell, _ []string) error {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := cmds[name]
		sh.printf("  %-9s %-50s %s\n", cmd.name, cmd.usage, cmd.description)
	}
	return nil
}
