package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAsKeepsKindAndCause(t *testing.T) {
	err := WrapAs(sql.ErrConnDone, ErrDataAccess, "")
	assert.Equal(t, "DATA_ACCESS_ERROR", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Equal(t, ErrDataAccess.Message, err.Message)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	custom := WrapAs(sql.ErrConnDone, ErrStaleVersion, "version 3 is outdated")
	assert.Equal(t, "version 3 is outdated", custom.Message)
	assert.Equal(t, http.StatusPreconditionFailed, custom.Status)
}

func TestFromErrorFindsWrappedError(t *testing.T) {
	inner := Clone(ErrScheduleConflict, "")
	outer := fmt.Errorf("commit: %w", inner)

	got := FromError(outer)
	require.NotNil(t, got)
	assert.Same(t, inner, got)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "schedule not found")
	assert.Equal(t, "schedule not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Nil(t, Clone(nil, "x"))
}
