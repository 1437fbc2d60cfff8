package commands

import (
	"fmt"

	"pagebot-core-console/internal/domain"

	"github.com/spf13/cobra"
)

var installPageFlag string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the bot on a page",
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

		result, err := a.engine.Install(ctx, installPageFlag, "")
		if err != nil {
			return err
		}

		vm, err := a.engine.ViewModel(ctx, installPageFlag)
		if err != nil {
			return err
		}

		th := defaultTheme()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, th.Success.Render("Bot installed on "+vm.Name), th.Muted.Render("("+result.CommandID+")"))
		fmt.Fprintln(out, renderPages([]domain.PageViewModel{vm}))
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installPageFlag, "page", "", "Page ID")
	_ = installCmd.MarkFlagRequired("page")
}
