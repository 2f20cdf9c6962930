package main

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-log-dashboard/users"
	"github.com/spf13/cobra"
)

func newLoginCommand(env *environment, flags *globalFlags) *cobra.Command {
	var creds users.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.prompt(&creds.Username, "Username: "); err != nil {
				return err
			}
			if err := a.prompt(&creds.Password, "Password: "); err != nil {
				return err
			}
			profile, err := a.session.Login(cmd.Context(), creds)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(profile); ok {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", profile.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newRegisterCommand(env *environment, flags *globalFlags) *cobra.Command {
	var reg users.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, p := range []struct {
				dst   *string
				label string
			}{
				{&reg.Username, "Username: "},
				{&reg.Email, "Email: "},
				{&reg.Password, "Password: "},
			} {
				if err := a.prompt(p.dst, p.label); err != nil {
					return err
				}
			}
			if reg.Password2 == "" {
				reg.Password2 = reg.Password
			}

			profile, err := a.session.Register(cmd.Context(), reg)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(profile); ok {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s. You are logged in.\n", profile.DisplayName())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&reg.Username, "username", "u", "", "username (prompted when empty)")
	f.StringVarP(&reg.Email, "email", "e", "", "email address (prompted when empty)")
	f.StringVarP(&reg.Password, "password", "p", "", "password (prompted when empty)")
	f.StringVar(&reg.Password2, "confirm-password", "", "repeat the password (defaults to --password)")
	f.StringVar(&reg.FirstName, "first-name", "", "first name")
	f.StringVar(&reg.LastName, "last-name", "", "last name")
	return cmd
}

func newLogoutCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			a.session.Logout()
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			profile := a.session.CurrentUser()
			if profile == nil {
				return fmt.Errorf("not logged in")
			}
			if ok, err := a.emit(profile); ok {
				return err
			}
			return printProfile(a.out, profile)
		},
	}
}

// prompt reads a line from stdin into dst when dst is empty.
func (a *app) prompt(dst *string, label string) error {
	if *dst != "" {
		return nil
	}
	if a.in == nil {
		return fmt.Errorf("%s is required", strings.TrimSuffix(strings.ToLower(label), ": "))
	}
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	*dst = strings.TrimSpace(line)
	return nil
}
