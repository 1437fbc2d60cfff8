package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pagebot-core-console/internal/domain"
)

type errorBody struct {
	Error  string           `json:"error"`
	Kind   domain.ErrorKind `json:"kind,omitempty"`
	PageID string           `json:"page_id,omitempty"`
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNoSession:
		return http.StatusUnauthorized
	case domain.KindUnknownPage:
		return http.StatusNotFound
	case domain.KindInvalidField:
		return http.StatusBadRequest
	case domain.KindAlreadyInstalled, domain.KindCommandInFlight:
		return http.StatusConflict
	case domain.KindNotInstalled, domain.KindConfigIncomplete:
		return http.StatusUnprocessableEntity
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindMutationFailed, domain.KindFetchError,
		domain.KindSessionExchangeFailed, domain.KindProviderLoginFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Kind: domain.KindOf(err)}
	var e *domain.Error
	if errors.As(err, &e) {
		body.PageID = e.PageID
	}
	writeJSON(w, statusFor(err), body)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// messageFor is the operator-facing text of an error
func messageFor(err error) string {
	switch domain.KindOf(err) {
	case domain.KindProviderLoginFailed:
		return "Login with the provider failed. Try again."
	case domain.KindSessionExchangeFailed:
		return "The backend rejected the login. Try again."
	case domain.KindFetchError:
		return "Could not load page settings. Showing the last known data."
	case domain.KindMutationFailed:
		return "The backend rejected the request. Your edits were kept."
	case domain.KindAlreadyInstalled:
		return "The bot is already installed on this page."
	case domain.KindTimeout:
		return "The backend did not answer in time."
	case domain.KindNoSession:
		return "Log in first."
	case domain.KindUnknownPage:
		return "This page is not available to your account."
	case domain.KindNotInstalled:
		return "Install the bot before saving settings."
	case domain.KindConfigIncomplete:
		return "Fill in all four settings before saving."
	case domain.KindCommandInFlight:
		return "Another request for this page is still running."
	case domain.KindInvalidField:
		return "Unknown setting."
	}
	return "Something went wrong."
}
