package domain

// PageAsset is an immutable snapshot of a page the provider grants access to.
type PageAsset struct {
	PageID          string `json:"page_id"`
	Name            string `json:"name"`
	PageAccessToken string `json:"-"`
}

// PageURL returns the provider link for a page
func PageURL(pageID string) string {
	return "https://www.facebook.com/" + pageID
}

// UniquePages drops repeated page IDs, keeping the first occurrence and the provider order.
func UniquePages(pages []PageAsset) []PageAsset {
	seen := make(map[string]struct{}, len(pages))
	out := make([]PageAsset, 0, len(pages))
	for _, p := range pages {
		if p.PageID == "" {
			continue
		}
		if _, ok := seen[p.PageID]; ok {
			continue
		}
		seen[p.PageID] = struct{}{}
		out = append(out, p)
	}
	return out
}
