package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/talentflow/internal/session"
)

func openSession() (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.Load(cfg.Storage.DataDir)
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in as a recruiter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.Login(session.User{Email: args[0], Name: name, LoggedIn: time.Now().UTC()}); err != nil {
				return err
			}
			printSuccess("Signed in as %s", args[0])
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			u, err := s.User()
			if errors.Is(err, session.ErrNotLoggedIn) {
				printStep("Not signed in")
				return nil
			}
			s.OnLogout(func() { printSuccess("Signed out %s", u.Email) })
			return s.Logout()
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			u, err := s.User()
			if err != nil {
				return err
			}
			label := u.Email
			if u.Name != "" {
				label = fmt.Sprintf("%s <%s>", u.Name, u.Email)
			}
			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
}
