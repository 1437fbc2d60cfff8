package domain

// PageViewModel is the derived per-page state the view renders.
// It is recomputed on every render and never stored.
type PageViewModel struct {
	PageID              string  `json:"page_id"`
	Name                string  `json:"name"`
	PageURL             string  `json:"page_url"`
	EffectiveWebhookURL string  `json:"effective_webhook_url,omitempty"`
	EffectiveShopLink   string  `json:"effective_shop_link,omitempty"`
	EffectiveField      string  `json:"effective_field,omitempty"`
	EffectiveLocation   string  `json:"effective_location,omitempty"`
	IsInstalled         bool    `json:"is_installed"`
	InFlight            bool    `json:"in_flight"`
	CanInstall          bool    `json:"can_install"`
	CanSave             bool    `json:"can_save"`
	HasDraft            bool    `json:"has_draft"`
	MissingFields       []Field `json:"missing_fields,omitempty"`
}

// Effective returns the resolved value of a field
func (vm PageViewModel) Effective(f Field) string {
	return vm.EffectiveFields().Get(f)
}

// EffectiveFields returns the four resolved values
func (vm PageViewModel) EffectiveFields() PageFields {
	return PageFields{
		WebhookURL: vm.EffectiveWebhookURL,
		ShopLink:   vm.EffectiveShopLink,
		Field:      vm.EffectiveField,
		Location:   vm.EffectiveLocation,
	}
}

// EffectiveFields applies draft-over-record precedence. Either argument may be nil.
func EffectiveFields(record *ConfigRecord, draft *Draft) PageFields {
	var base, top PageFields
	if record != nil {
		base = record.PageFields
	}
	if draft != nil {
		top = draft.PageFields
	}
	return Overlay(top, base)
}

// CanSave is the save guard: the page is installed and all four effective fields are set.
func CanSave(installed bool, effective PageFields) bool {
	return installed && effective.Complete()
}

// BuildPageViewModel derives the view model of one page.
// record is nil when the page is not installed, draft is nil when there are no edits.
func BuildPageViewModel(asset PageAsset, record *ConfigRecord, draft *Draft, inFlight bool) PageViewModel {
	installed := record != nil
	eff := EffectiveFields(record, draft)
	return PageViewModel{
		PageID:              asset.PageID,
		Name:                asset.Name,
		PageURL:             PageURL(asset.PageID),
		EffectiveWebhookURL: eff.WebhookURL,
		EffectiveShopLink:   eff.ShopLink,
		EffectiveField:      eff.Field,
		EffectiveLocation:   eff.Location,
		IsInstalled:         installed,
		InFlight:            inFlight,
		CanInstall:          !installed && !inFlight,
		CanSave:             CanSave(installed, eff) && !inFlight,
		HasDraft:            draft != nil && !draft.IsEmpty(),
		MissingFields:       eff.Missing(),
	}
}
