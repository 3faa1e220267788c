package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// ErrMalformedResponse is returned when a 2xx response does not have the
// shape the contract promises (missing tokens, missing user id, bad JSON).
var ErrMalformedResponse = errors.New("authclient: malformed backend response")

// Localized messages shown to users. Raw backend payloads never reach the
// UI layer; only these strings or a backend field message do.
const (
	MsgNetwork        = "Problème de connexion. Vérifiez votre connexion internet."
	MsgValidation     = "Veuillez vérifier vos informations et réessayer."
	MsgBadCredentials = "Nom d'utilisateur ou mot de passe incorrect."
	MsgForbidden      = "Accès refusé. Vous n'avez pas les permissions nécessaires."
	MsgNotFound       = "Utilisateur non trouvé. Vérifiez vos identifiants."
	MsgConflict       = "Ce nom d'utilisateur ou email existe déjà."
	MsgTooMany        = "Trop de tentatives. Veuillez réessayer plus tard."
	MsgBadGateway     = "Service temporairement indisponible."
	MsgMaintenance    = "Service en maintenance. Veuillez réessayer plus tard."
	MsgTimeout        = "Délai d'attente dépassé. Veuillez réessayer."
	MsgServer         = "Erreur du serveur. Veuillez réessayer plus tard."
	MsgUnexpected     = "Une erreur inattendue s'est produite."
)

// APIError is a failed backend call. StatusCode is 0 when the request never
// produced an HTTP response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	// Fields holds per-field validation messages from 400 responses.
	Fields map[string][]string

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// UserMessage returns the localized message to show for this error.
func (e *APIError) UserMessage() string {
	switch e.StatusCode {
	case 0:
		return MsgNetwork
	case http.StatusBadRequest:
		if msg := e.FirstFieldError(); msg != "" {
			return msg
		}
		return MsgValidation
	case http.StatusUnauthorized:
		return MsgBadCredentials
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusNotFound:
		return MsgNotFound
	case http.StatusConflict:
		return MsgConflict
	case http.StatusTooManyRequests:
		return MsgTooMany
	case http.StatusBadGateway:
		return MsgBadGateway
	case http.StatusServiceUnavailable:
		return MsgMaintenance
	case http.StatusGatewayTimeout:
		return MsgTimeout
	}
	if e.StatusCode >= 500 {
		return MsgServer
	}
	return MsgUnexpected
}

// FirstFieldError returns the first message of the alphabetically first
// field, so the same response always yields the same text.
func (e *APIError) FirstFieldError() string {
	keys := make([]string, 0, len(e.Fields))
	for k, msgs := range e.Fields {
		if len(msgs) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	slices.Sort(keys)
	return e.Fields[keys[0]][0]
}

// UserMessage maps any error to a user-facing string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	var valErr ValidationErrors
	if errors.As(err, &valErr) {
		return valErr.First()
	}
	return MsgUnexpected
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse turns a non-2xx body into an *APIError. It accepts the
// backend's {"detail"}, {"message"} and {"error"} envelopes and
// field -> [messages] validation maps, nested under "errors" or top level.
func parseErrorResponse(status int, body []byte) error {
	apiErr := &APIError{
		StatusCode: status,
		Message:    http.StatusText(status),
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
			apiErr.Message = text
		}
		return apiErr
	}

	for _, key := range []string{"detail", "message", "error"} {
		var s string
		if v, ok := raw[key]; ok && json.Unmarshal(v, &s) == nil && s != "" {
			apiErr.Message = s
			break
		}
	}
	if v, ok := raw["code"]; ok {
		_ = json.Unmarshal(v, &apiErr.Code)
	}

	fieldSource := raw
	if nested, ok := raw["errors"]; ok {
		var inner map[string]json.RawMessage
		if json.Unmarshal(nested, &inner) == nil {
			fieldSource = inner
		}
	}
	for key, v := range fieldSource {
		switch key {
		case "detail", "message", "error", "code", "errors":
			continue
		}
		if msgs := fieldMessages(v); len(msgs) > 0 {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = msgs
		}
	}

	return apiErr
}

func fieldMessages(v json.RawMessage) []string {
	var list []string
	if json.Unmarshal(v, &list) == nil {
		return list
	}
	var single string
	if json.Unmarshal(v, &single) == nil && single != "" {
		return []string{single}
	}
	return nil
}
