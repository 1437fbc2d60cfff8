package api

import (
	"net/http"
	"net/url"

	"pagebot-core-console/internal/application"
	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/go-chi/chi/v5"
)

type fieldInput struct {
	Name        domain.Field
	Label       string
	Placeholder string
}

type pageRow struct {
	domain.PageViewModel
	Inputs []fieldInput
}

type indexData struct {
	LoggedIn bool
	Session  domain.Session
	Pages    []pageRow
	Status   application.RegistryStatus
	Notice   string
	Error    string
	OAuth    bool
}

var fieldLabels = map[domain.Field]string{
	domain.FieldWebhookURL: "Webhook URL",
	domain.FieldShopLink:   "Shop link",
	domain.FieldField:      "Field",
	domain.FieldLocation:   "Location",
}

func (c *Console) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Notice: r.URL.Query().Get("notice"),
		Error:  r.URL.Query().Get("error"),
		OAuth:  c.oauth != nil,
	}

	if session, err := c.engine.Session(); err == nil {
		data.LoggedIn = true
		data.Session = session
		data.Status = c.engine.Status()

		vms, err := c.engine.ViewModels(r.Context())
		if err != nil {
			data.Error = messageFor(err)
		}
		for _, vm := range vms {
			row := pageRow{PageViewModel: vm}
			for _, f := range domain.AllFields {
				row.Inputs = append(row.Inputs, fieldInput{
					Name:        f,
					Label:       fieldLabels[f],
					Placeholder: vm.Effective(f),
				})
			}
			data.Pages = append(data.Pages, row)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.pages.ExecuteTemplate(w, "pages.html", data); err != nil {
		c.logger.Error().Err(err).Msg("Failed to render pages view")
	}
}

func (c *Console) handleFormLogin(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("access_token")
	if token == "" {
		redirectWith(w, r, "error", "Paste a provider access token or use the login link.")
		return
	}
	if _, err := c.engine.Login(r.Context(), ports.ProviderCredential{AccessToken: token}); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "notice", "Logged in.")
}

func (c *Console) handleFormLogout(w http.ResponseWriter, r *http.Request) {
	c.engine.Logout()
	redirectWith(w, r, "notice", "Logged out.")
}

func (c *Console) handleFormRefresh(w http.ResponseWriter, r *http.Request) {
	if err := c.engine.Refresh(r.Context()); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "notice", "Page settings reloaded.")
}

func (c *Console) handleFormDraft(w http.ResponseWriter, r *http.Request) {
	if err := c.applyFormFields(r); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "", "")
}

func (c *Console) handleFormInstall(w http.ResponseWriter, r *http.Request) {
	if _, err := c.engine.Install(r.Context(), chi.URLParam(r, "pageId"), ""); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "notice", "Bot installed.")
}

func (c *Console) handleFormSave(w http.ResponseWriter, r *http.Request) {
	if err := c.applyFormFields(r); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	result, err := c.engine.SaveConfig(r.Context(), chi.URLParam(r, "pageId"))
	if err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "notice", "Settings saved. Token: "+result.Token)
}

// applyFormFields moves the non-empty form inputs into the draft
func (c *Console) applyFormFields(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return domain.NewError(domain.KindInvalidField, "", err)
	}
	pageID := chi.URLParam(r, "pageId")
	for _, f := range domain.AllFields {
		if err := c.engine.SetField(pageID, f, r.PostForm.Get(string(f))); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if c.oauth == nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, c.oauth.AuthCodeURL(c.states.Issue()), http.StatusFound)
}

func (c *Console) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if c.oauth == nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error_reason"); reason != "" {
		c.logger.Info().Str("reason", reason).Msg("Provider login cancelled")
		redirectWith(w, r, "error", messageFor(domain.ErrProviderLoginFailed))
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}
	if !c.states.Consume(state) {
		http.Error(w, "Invalid or expired state", http.StatusBadRequest)
		return
	}

	if _, err := c.engine.Login(r.Context(), ports.ProviderCredential{Code: code}); err != nil {
		redirectWith(w, r, "error", messageFor(err))
		return
	}
	redirectWith(w, r, "notice", "Logged in.")
}

func redirectWith(w http.ResponseWriter, r *http.Request, key, msg string) {
	target := "/"
	if key != "" && msg != "" {
		target += "?" + url.Values{key: {msg}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
