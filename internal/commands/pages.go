package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List your pages with their bot state",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := providerToken()
		if err != nil {
			return err
		}

		cfg, logger := loadConfig()
		ctx := cmd.Context()
		a := newApp(ctx, cfg, logger)
		defer a.close()

		if err := a.login(ctx, token); err != nil {
			return err
		}

		vms, err := a.engine.ViewModels(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if status := a.engine.Status(); status.LastError != "" {
			fmt.Fprintln(out, defaultTheme().Alert.Render("Settings may be out of date: "+status.LastError))
		}
		fmt.Fprintln(out, renderPages(vms))
		return nil
	},
}
