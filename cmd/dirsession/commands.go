package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-directory-session/directory"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/internal/metrics"
	"github.com/jrsteele09/go-directory-session/internal/utils"
	"github.com/jrsteele09/go-directory-session/session"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username|email>",
		Short: "Log in and store the session tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = prompt(cmd, "Password: "); err != nil {
					return err
				}
			}
			res := c.manager.Login(cmd.Context(), args[0], password)
			return c.report(cmd, res, fmt.Sprintf("Logged in as %s", args[0]))
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.manager.Logout(cmd.Context())
			return c.report(cmd, session.Result{Success: true}, "Logged out")
		},
	}
}

func (c *cli) signupCmd() *cobra.Command {
	var req directory.SignupRequest
	var phone string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		Long: `Register a new account. The new account is not logged in.

Examples:
  dirsession signup --username bob --email bob@example.com --password s3cret-pass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.PasswordConfirm == "" {
				req.PasswordConfirm = req.Password
			}
			if phone != "" {
				req.PhoneNumber = utils.Ptr(phone)
			}
			res := c.manager.Signup(cmd.Context(), req)
			return c.report(cmd, res, fmt.Sprintf("Account %s created, run 'dirsession login %s'", req.Username, req.Username))
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.PasswordConfirm, "password-confirm", "", "password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := c.manager.Start(cmd.Context())
			if !snap.IsAuthenticated {
				if c.jsonOut {
					_ = c.printJSON(cmd, map[string]any{"authenticated": false})
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "Not logged in")
				}
				return errReported
			}

			p := snap.Profile
			if c.jsonOut {
				out := map[string]any{
					"authenticated": true,
					"is_admin":      snap.IsAdmin,
					"profile":       p,
				}
				if !snap.AccessExpiry.IsZero() {
					out["access_expires_at"] = snap.AccessExpiry
				}
				return c.printJSON(cmd, out)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s%s\n", "Username:", p.Username)
			fmt.Fprintf(out, "%-12s%s\n", "Email:", p.Email)
			if p.Phone() != "" {
				fmt.Fprintf(out, "%-12s%s\n", "Phone:", p.Phone())
			}
			fmt.Fprintf(out, "%-12s%d\n", "ID:", p.ID)
			fmt.Fprintf(out, "%-12s%t\n", "Admin:", snap.IsAdmin)
			fmt.Fprintf(out, "%-12s%d\n", "Reviews:", p.ReviewCount)
			fmt.Fprintf(out, "%-12s%d\n", "Businesses:", p.BusinessCount)
			if !snap.AccessExpiry.IsZero() {
				fmt.Fprintf(out, "%-12s%s\n", "Expires:", snap.AccessExpiry.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := c.manager.Start(cmd.Context())
			if c.jsonOut {
				counters, err := metrics.Counters(c.registry)
				if err != nil {
					return err
				}
				out := map[string]any{
					"state":        snap.State.String(),
					"api_base_url": c.cfg.GetAPIBaseURL(),
					"token_store":  c.cfg.GetTokenStoreBackend(),
					"metrics":      counters,
				}
				if !snap.AccessExpiry.IsZero() {
					out["access_expires_at"] = snap.AccessExpiry
				}
				return c.printJSON(cmd, out)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State:       %s\n", snap.State)
			if !snap.AccessExpiry.IsZero() {
				fmt.Fprintf(out, "Expires:     %s\n", snap.AccessExpiry.Local().Format(time.RFC1123))
			}
			fmt.Fprintf(out, "API:         %s\n", c.cfg.GetAPIBaseURL())
			fmt.Fprintf(out, "Token store: %s\n", c.cfg.GetTokenStoreBackend())
			return nil
		},
	}
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if snap := c.manager.Start(cmd.Context()); !snap.IsAuthenticated {
				return errs.Wrapf(errs.ErrNoAccessToken, "not logged in")
			}
			data, res := c.manager.Dashboard(cmd.Context())
			if !res.Success {
				return c.report(cmd, res, "")
			}
			return printRaw(cmd, data)
		},
	}
}

func printRaw(cmd *cobra.Command, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
