package shopify

import "testing"

func TestNormalizeShopLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare store host", "acme.myshopify.com", "https://acme.myshopify.com"},
		{"mixed case with slash", "HTTPS://Acme.MyShopify.com/", "https://acme.myshopify.com"},
		{"keeps path", "http://acme.myshopify.com/collections/shoes/", "https://acme.myshopify.com/collections/shoes"},
		{"keeps query and fragment", "myshop.myshopify.com/products/x?variant=42#reviews", "https://myshop.myshopify.com/products/x?variant=42#reviews"},
		{"keeps query without path", "https://Acme.myshopify.com?ref=bot", "https://acme.myshopify.com?ref=bot"},
		{"custom domain untouched", "https://shop.acme.com/x", "https://shop.acme.com/x"},
		{"non url untouched", "not a link", "not a link"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeShopLink(tt.in); got != tt.want {
				t.Errorf("NormalizeShopLink(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
