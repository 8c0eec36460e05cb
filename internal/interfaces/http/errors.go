package httpinterface

import (
	"errors"
	"net/http"

	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
)

var (
	errBadRequest       = errors.New("bad request")
	errInvalidSignature = errors.New("buyer signature does not match buyer")
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrZeroAmount, http.StatusBadRequest, "ZERO_AMOUNT"},
	{domain.ErrInvalidAddress, http.StatusBadRequest, "INVALID_ADDRESS"},
	{domain.ErrDuplicateTradeId, http.StatusConflict, "DUPLICATE_TRADE_ID"},
	{domain.ErrInvalidTradeID, http.StatusBadRequest, "INVALID_TRADE_ID"},
	{domain.ErrInvalidLockDuration, http.StatusBadRequest, "INVALID_LOCK_DURATION"},
	{domain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{domain.ErrInvalidPreimage, http.StatusUnprocessableEntity, "INVALID_PREIMAGE"},
	{domain.ErrMissingRequiredSignature, http.StatusForbidden, "MISSING_REQUIRED_SIGNATURE"},
	{domain.ErrInvalidRecipient, http.StatusBadRequest, "INVALID_RECIPIENT"},
	{domain.ErrInsufficientDistinctSignatures, http.StatusForbidden, "INSUFFICIENT_DISTINCT_SIGNATURES"},
	{domain.ErrTimelockNotExpired, http.StatusConflict, "TIMELOCK_NOT_EXPIRED"},
	{domain.ErrTradeNotFound, http.StatusNotFound, "TRADE_NOT_FOUND"},
	{domain.ErrInvalidSignatureEncoding, http.StatusBadRequest, "INVALID_SIGNATURE_ENCODING"},
	{errInvalidSignature, http.StatusUnauthorized, "INVALID_SIGNATURE"},
	{ports.ErrSubscriptionNotFound, http.StatusNotFound, "WEBHOOK_NOT_FOUND"},
	{ports.ErrInvalidEndpoint, http.StatusBadRequest, "INVALID_WEBHOOK_ENDPOINT"},
	{application.ErrInvalidWebhookEvent, http.StatusBadRequest, "INVALID_WEBHOOK_EVENT"},
	{application.ErrWebhookManagerNotInitialized, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{application.ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{errBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
}

// statusForError returns the http status and the error code for err.
// Unknown errors are internal errors.
func statusForError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}
