package service

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/locktwitter/pkg/authenticator"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
	"github.com/NethermindEth/locktwitter/pkg/utils/errors"
)

// statusForError maps a login failure to the HTTP status returned to the caller.
func statusForError(err error) int {
	switch {
	case stderrors.Is(err, authenticator.ErrUserCancelled),
		stderrors.Is(err, twitter.ErrCancelled),
		stderrors.Is(err, context.Canceled):
		return http.StatusConflict
	case stderrors.Is(err, twitter.ErrAccountAccessDenied),
		stderrors.Is(err, twitter.ErrNoValidAccounts):
		return http.StatusPreconditionFailed
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch errors.TypeOf(err) {
	case errors.TypeValidation:
		return http.StatusBadRequest
	case errors.TypeIdentity, errors.TypeTwitter:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, gin.H) {
	body := gin.H{"error": err.Error()}
	if t := errors.TypeOf(err); t != "" {
		body["type"] = t
	}

	var authErr *identity.AuthenticationError
	if stderrors.As(err, &authErr) {
		body["code"] = authErr.Code
		if authErr.Description != "" {
			body["description"] = authErr.Description
		}
	}

	return statusForError(err), body
}
