// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authcore/internal/platform/apperr"
)

/*
TestAppError_WithCause keeps the code and exposes the cause via errors.Is.
*/
func TestAppError_WithCause(t *testing.T) {
	sentinel := apperr.New(apperr.CodeTokenExpired, http.StatusUnauthorized, "Token expired")
	cause := errors.New("exp in the past")

	wrapped := sentinel.WithCause(cause)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, sentinel.Cause, "sentinel must not be mutated")
}

/*
TestAppError_As finds the AppError through fmt wrapping.
*/
func TestAppError_As(t *testing.T) {
	err := fmt.Errorf("service_failed: %w", apperr.Conflict("taken"))

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeConflict, ae.Code)
	assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.False(t, apperr.HasCode(errors.New("plain"), apperr.CodeConflict))
}

/*
TestAppError_Persistence hides the storage cause from the client message.
*/
func TestAppError_Persistence(t *testing.T) {
	err := apperr.Persistence(errors.New("dial tcp: connection refused"))

	assert.Equal(t, apperr.CodePersistence, err.Code)
	assert.NotContains(t, err.Error(), "dial tcp")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}
