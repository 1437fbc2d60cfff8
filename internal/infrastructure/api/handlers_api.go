package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"pagebot-core-console/internal/application"
	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	AccessToken string `json:"access_token"`
}

type sessionResponse struct {
	Session domain.Session             `json:"session"`
	Status  application.RegistryStatus `json:"registry"`
}

type pagesResponse struct {
	Pages  []domain.PageViewModel     `json:"pages"`
	Status application.RegistryStatus `json:"registry"`
}

type setFieldRequest struct {
	Value string `json:"value"`
}

type installRequest struct {
	PageAccessToken string `json:"page_access_token"`
}

type installResponse struct {
	*application.InstallResult
	Page domain.PageViewModel `json:"page"`
}

type saveResponse struct {
	*application.SaveResult
	Page domain.PageViewModel `json:"page"`
}

func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.AccessToken == "" {
		writeBadRequest(w, "access_token is required")
		return
	}

	session, err := c.engine.Login(r.Context(), ports.ProviderCredential{AccessToken: req.AccessToken})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: *session, Status: c.engine.Status()})
}

func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request) {
	c.engine.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Console) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := c.engine.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session, Status: c.engine.Status()})
}

func (c *Console) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := c.engine.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.engine.Status())
}

func (c *Console) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := c.engine.ViewModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagesResponse{Pages: pages, Status: c.engine.Status()})
}

func (c *Console) handleReloadPages(w http.ResponseWriter, r *http.Request) {
	if _, err := c.engine.ReloadPages(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	c.handleListPages(w, r)
}

func (c *Console) handleGetPage(w http.ResponseWriter, r *http.Request) {
	vm, err := c.engine.ViewModel(r.Context(), chi.URLParam(r, "pageId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (c *Console) handleSetField(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageId")
	field, err := domain.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := c.engine.SetField(pageID, field, req.Value); err != nil {
		writeError(w, err)
		return
	}
	c.handleGetPage(w, r)
}

func (c *Console) handleInstall(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageId")

	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := c.engine.Install(r.Context(), pageID, req.PageAccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	vm, _ := c.engine.ViewModel(r.Context(), pageID)
	writeJSON(w, http.StatusOK, installResponse{InstallResult: result, Page: vm})
}

func (c *Console) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageId")

	result, err := c.engine.SaveConfig(r.Context(), pageID)
	if err != nil {
		writeError(w, err)
		return
	}
	vm, _ := c.engine.ViewModel(r.Context(), pageID)
	writeJSON(w, http.StatusOK, saveResponse{SaveResult: result, Page: vm})
}

func (c *Console) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := c.engine.History(r.Context(), chi.URLParam(r, "pageId"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": records})
}
