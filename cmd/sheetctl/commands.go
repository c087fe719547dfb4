package main

import (
	"github.com/spf13/cobra"

	"sheetinsight-backend/internal/users"
)

func newCreateAdminCmd(load func() (settings, error), build appBuilder) *cobra.Command {
	var in users.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			app, err := build(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer app.Close()

			u, created, err := app.UsersService.EnsureAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s.Output, map[string]any{
				"created": created,
				"user":    u,
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "Admin", "display name")
	f.StringVar(&in.Email, "email", "", "admin email")
	f.StringVar(&in.Password, "password", "", "admin password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newStatsCmd(load func() (settings, error), build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print platform totals and weekly activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}
			app, err := build(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.AdminService.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s.Output, st)
		},
	}
}
