package commands

import (
	"strings"

	"pagebot-core-console/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type theme struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Alert   lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#00FFFF")
	secondary := lipgloss.Color("#7D7D7D")
	success := lipgloss.Color("#00FF00")
	alert := lipgloss.Color("#FFBF00")

	return theme{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Border:  lipgloss.NewStyle().Foreground(secondary),
		Muted:   lipgloss.NewStyle().Foreground(secondary),
		Success: lipgloss.NewStyle().Foreground(success),
		Alert:   lipgloss.NewStyle().Foreground(alert),
	}
}

// renderPages draws one row per page view model
func renderPages(vms []domain.PageViewModel) string {
	th := defaultTheme()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(th.Border).
		Headers("PAGE", "NAME", "INSTALLED", "WEBHOOK URL", "SHOP LINK", "FIELD", "LOCATION", "CAN SAVE", "MISSING").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.Header
			}
			return th.Cell
		})

	for _, vm := range vms {
		t.Row(
			vm.PageID,
			vm.Name,
			yesNo(vm.IsInstalled),
			orDash(vm.EffectiveWebhookURL),
			orDash(vm.EffectiveShopLink),
			orDash(vm.EffectiveField),
			orDash(vm.EffectiveLocation),
			yesNo(vm.CanSave),
			missingList(vm.MissingFields),
		)
	}

	return t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func missingList(fields []domain.Field) string {
	if len(fields) == 0 {
		return "-"
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
