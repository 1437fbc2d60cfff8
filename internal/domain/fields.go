package domain

import "fmt"

// Field names one of the four editable per-page settings
type Field string

const (
	FieldWebhookURL Field = "webhookUrl"
	FieldShopLink   Field = "shopLink"
	FieldField      Field = "field"
	FieldLocation   Field = "location"
)

// AllFields lists the editable fields in display order
var AllFields = []Field{FieldWebhookURL, FieldShopLink, FieldField, FieldLocation}

// ParseField validates a field name coming from the view
func ParseField(name string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", &Error{Kind: KindInvalidField, Err: fmt.Errorf("unknown field %q", name)}
}

// PageFields holds the four settings. An empty string means the value is undefined.
type PageFields struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	ShopLink   string `json:"shop_link,omitempty"`
	Field      string `json:"field,omitempty"`
	Location   string `json:"location,omitempty"`
}

// Get returns the value of one field
func (p PageFields) Get(f Field) string {
	switch f {
	case FieldWebhookURL:
		return p.WebhookURL
	case FieldShopLink:
		return p.ShopLink
	case FieldField:
		return p.Field
	case FieldLocation:
		return p.Location
	}
	return ""
}

// With returns a copy with one field replaced
func (p PageFields) With(f Field, value string) PageFields {
	switch f {
	case FieldWebhookURL:
		p.WebhookURL = value
	case FieldShopLink:
		p.ShopLink = value
	case FieldField:
		p.Field = value
	case FieldLocation:
		p.Location = value
	}
	return p
}

// Overlay resolves each field as top-if-set, else base.
func Overlay(top, base PageFields) PageFields {
	out := base
	for _, f := range AllFields {
		if v := top.Get(f); v != "" {
			out = out.With(f, v)
		}
	}
	return out
}

// AnySet reports whether at least one field is non-empty
func (p PageFields) AnySet() bool {
	for _, f := range AllFields {
		if p.Get(f) != "" {
			return true
		}
	}
	return false
}

// Complete reports whether all four fields are non-empty
func (p PageFields) Complete() bool {
	for _, f := range AllFields {
		if p.Get(f) == "" {
			return false
		}
	}
	return true
}

// Missing lists the fields that are still undefined
func (p PageFields) Missing() []Field {
	var missing []Field
	for _, f := range AllFields {
		if p.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
