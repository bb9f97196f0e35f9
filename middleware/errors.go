package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// Error codes carried in the response envelope.
const (
	CodeSuccess            = "000"
	CodeValidationFailed   = "ERROR_000"
	CodeInvalidCredentials = "ERROR_100"
	CodeUserNotFound       = "ERROR_101"
	CodeWeakPassword       = "ERROR_201"
	CodeNotAuthenticated   = "ERROR_401"
	CodePermissionDenied   = "ERROR_403"
	CodeAccountDisabled    = "ERROR_410"
	CodeStoreUnavailable   = "ERROR_503"
	CodeGeneric            = "ERROR_999"
)

// Response is the JSON envelope written for every API response.
type Response struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a 200 envelope carrying data.
func WriteSuccess(w http.ResponseWriter, message string, data any) {
	if message == "" {
		message = "SUCCESS"
	}
	WriteJSON(w, http.StatusOK, Response{ErrorCode: CodeSuccess, Message: message, Data: data})
}

// WriteError maps err to a status code and envelope and writes it.
func WriteError(w http.ResponseWriter, err error) {
	status, resp := ErrorResponse(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", bearerScheme)
	}
	WriteJSON(w, status, resp)
}

// ErrorResponse returns the status and envelope for err without writing them.
func ErrorResponse(err error) (int, Response) {
	kind := authcore.KindOf(err)
	reason := map[string]string{"reason": kind.String()}

	var policyErr *authcore.PolicyError
	switch {
	case errors.As(err, &policyErr):
		return http.StatusBadRequest, Response{
			ErrorCode: CodeWeakPassword,
			Message:   "WEAK_PASSWORD",
			Data:      map[string]any{"violations": policyErr.Violations},
		}
	case errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusNotFound, Response{ErrorCode: CodeUserNotFound, Message: "USER_NOT_FOUND"}
	}

	switch kind {
	case authcore.KindValidationFailed:
		return http.StatusBadRequest, Response{ErrorCode: CodeValidationFailed, Message: "VALIDATION_FAILED"}
	case authcore.KindInvalidCredentials:
		return http.StatusUnauthorized, Response{ErrorCode: CodeInvalidCredentials, Message: "INVALID_CREDENTIALS"}
	case authcore.KindNoCredential,
		authcore.KindMalformedHeader,
		authcore.KindExpired,
		authcore.KindMalformed,
		authcore.KindRevoked,
		authcore.KindPrincipalNotFound,
		authcore.KindTokenTypeMismatch:
		return http.StatusUnauthorized, Response{ErrorCode: CodeNotAuthenticated, Message: "NOT_AUTHENTICATED", Data: reason}
	case authcore.KindPrincipalInactive:
		return http.StatusForbidden, Response{ErrorCode: CodeAccountDisabled, Message: "ACCOUNT_DISABLED"}
	case authcore.KindStoreUnavailable:
		return http.StatusServiceUnavailable, Response{ErrorCode: CodeStoreUnavailable, Message: "STORE_UNAVAILABLE"}
	default:
		return http.StatusInternalServerError, Response{ErrorCode: CodeGeneric, Message: "GENERIC_ERROR"}
	}
}
