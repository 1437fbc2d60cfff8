package shopify

import (
	"net/url"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

const shopSuffix = ".myshopify.com"

// NormalizeShopLink canonicalises links to a *.myshopify.com store as
// https://<shop>.myshopify.com followed by the original path, query and fragment.
// Other links come back unchanged.
func NormalizeShopLink(link string) string {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return link
	}

	raw := trimmed
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return link
	}

	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, shopSuffix) {
		return link
	}

	normalized := goshopify.ShopBaseUrl(goshopify.ShopShortName(host))
	if path := strings.TrimRight(u.EscapedPath(), "/"); path != "" {
		normalized += path
	}
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		normalized += "#" + u.EscapedFragment()
	}
	return normalized
}
