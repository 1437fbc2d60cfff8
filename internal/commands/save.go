package commands

import (
	"fmt"

	"pagebot-core-console/internal/domain"

	"github.com/spf13/cobra"
)

var (
	savePageFlag       string
	saveWebhookURLFlag string
	saveShopLinkFlag   string
	saveFieldFlag      string
	saveLocationFlag   string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the settings of an installed page",
	Long:  "Save the settings of an installed page. Omitted settings keep their current backend value; all four must end up set.",
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

		edits := map[domain.Field]string{
			domain.FieldWebhookURL: saveWebhookURLFlag,
			domain.FieldShopLink:   saveShopLinkFlag,
			domain.FieldField:      saveFieldFlag,
			domain.FieldLocation:   saveLocationFlag,
		}
		for _, f := range domain.AllFields {
			if err := a.engine.SetField(savePageFlag, f, edits[f]); err != nil {
				return err
			}
		}

		result, err := a.engine.SaveConfig(ctx, savePageFlag)
		if err != nil {
			return err
		}

		vm, err := a.engine.ViewModel(ctx, savePageFlag)
		if err != nil {
			return err
		}

		th := defaultTheme()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, th.Success.Render("Settings saved for "+vm.Name))
		if result.Token != "" {
			fmt.Fprintln(out, th.Muted.Render("Token:"), result.Token)
		}
		fmt.Fprintln(out, renderPages([]domain.PageViewModel{vm}))
		return nil
	},
}

func init() {
	saveCmd.Flags().StringVar(&savePageFlag, "page", "", "Page ID")
	saveCmd.Flags().StringVar(&saveWebhookURLFlag, "webhook-url", "", "Webhook URL")
	saveCmd.Flags().StringVar(&saveShopLinkFlag, "shop-link", "", "Shop link")
	saveCmd.Flags().StringVar(&saveFieldFlag, "field", "", "Field")
	saveCmd.Flags().StringVar(&saveLocationFlag, "location", "", "Location")
	_ = saveCmd.MarkFlagRequired("page")
}
