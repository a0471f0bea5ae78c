//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/deploy"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/gateway"
	"hiddenLiquidity/internal/input"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/token"
)

// Error codes in the 40001-49999 range are the caller's fault, 50001-59999 the server's.
// Never renumber an existing code; append new ones.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAddress    = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrMalformedHandle     = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed ciphertext handle")}
	ErrInvalidProof        = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid input proof")}
	ErrContextMismatch     = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("input proof bound to another caller or contract")}
	ErrUnauthorizedSpender = Error{Code: 40012, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("exchange is not an authorized operator")}
	ErrUnknownPool         = Error{Code: 40013, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("unknown pool")}
	ErrUnknownDirection    = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown swap direction")}
	ErrUnknownToken        = Error{Code: 40015, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("unknown token")}
	ErrDecryptNotAllowed   = Error{Code: 40016, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("decryption not allowed")}
	ErrCiphertextForbidden = Error{Code: 40017, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("ciphertext not allowed for caller")}
	ErrEmptyInput          = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no values to encrypt")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrGrantFailed                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("access grant failed")}
	ErrCallDiscarded              = Error{Code: 50004, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("call discarded")}
	ErrPersistFailed              = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("persisting state failed")}
)

var errorTable = []struct {
	target error
	apiErr Error
}{
	{input.ErrInvalidProof, ErrInvalidProof},
	{input.ErrContextMismatch, ErrContextMismatch},
	{token.ErrUnauthorizedOperator, ErrUnauthorizedSpender},
	{ledger.ErrUnknownPool, ErrUnknownPool},
	{ledger.ErrUnknownDirection, ErrUnknownDirection},
	{deploy.ErrUnknownToken, ErrUnknownToken},
	{gateway.ErrDecryptNotAllowed, ErrDecryptNotAllowed},
	{fhe.ErrNotAllowed, ErrCiphertextForbidden},
	{acl.ErrGrantFailed, ErrGrantFailed},
	{chain.ErrDiscarded, ErrCallDiscarded},
}

// errorFor maps a domain error to its API error.
func errorFor(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, entry := range errorTable {
		if errors.Is(err, entry.target) {
			return entry.apiErr.WithErr(err)
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
