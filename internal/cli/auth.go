package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/auth"
	"github.com/idilsaglam/tada/internal/ui"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Token authentication for the todos API",
		Args:  exactArgs(0, "auth <login|logout|status|whoami>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageErrorf("usage: todo auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login [token]",
			Short: "Store a bearer token (prompts when not given)",
			Args:  maxArgs(1, "auth login [token]"),
			RunE:  a.authLogin,
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Delete the stored token",
			Args:  exactArgs(0, "auth logout"),
			RunE:  a.authLogout,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the token comes from and when it expires",
			Args:  exactArgs(0, "auth status"),
			RunE:  a.authStatus,
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Decode the token's JWT claims locally",
			Args:  exactArgs(0, "auth whoami"),
			RunE:  a.authWhoAmI,
		},
	)
	return cmd
}

func (a *app) authLogin(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		fmt.Fprint(a.streams.Out, "Paste your token: ")
		line, err := bufio.NewReader(a.streams.In).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token: %w", err)
		}
		token = line
	}
	if strings.TrimSpace(token) == "" {
		return usageErrorf("login: empty token")
	}
	if err := auth.Set(a.dir, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	a.log.Info("token stored")
	ui.OK(a.streams.Out, "logged in")
	return nil
}

func (a *app) authLogout(cmd *cobra.Command, args []string) error {
	ti, _ := auth.Get(a.dir)
	if ti != nil && ti.Source == "env" {
		ui.OK(a.streams.Out, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
		return nil
	}
	if err := auth.Delete(a.dir); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	ui.OK(a.streams.Out, "logged out")
	return nil
}

func (a *app) authStatus(cmd *cobra.Command, args []string) error {
	out := a.streams.Out
	ti, err := auth.Get(a.dir)
	if err != nil {
		return err
	}
	if ti == nil {
		fmt.Fprintln(out, ui.Current().Muted.Render("not logged in"))
		fmt.Fprintln(out, "Run: todo auth login")
		return nil
	}
	fmt.Fprintf(out, "source: %s\n", ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		fmt.Fprintln(out, "expires: (unknown)")
	case ti.Expired(time.Now()):
		fmt.Fprintf(out, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339), ui.Current().Error.Render("(expired)"))
	default:
		fmt.Fprintf(out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(out, "env override: "+auth.EnvToken)
	return nil
}

// whoami decodes the JWT payload locally (unverified); opaque tokens print basic info.
func (a *app) authWhoAmI(cmd *cobra.Command, args []string) error {
	ti, err := auth.Get(a.dir)
	if err != nil {
		return err
	}
	if ti == nil {
		return usageErrorf("not logged in. Run: todo auth login")
	}

	claims, err := auth.Claims(ti.Token)
	if errors.Is(err, auth.ErrNotJWT) {
		fmt.Fprintln(a.streams.Out, "Opaque token (cannot introspect locally).")
		fmt.Fprintln(a.streams.Out, "source:", ti.Source)
		return nil
	}
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("claims: %w", err)
	}
	fmt.Fprintln(a.streams.Out, "JWT payload:")
	fmt.Fprintln(a.streams.Out, string(b))
	return nil
}
