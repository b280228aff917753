package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlreadyClosedIsNotFoundClass(t *testing.T) {
	require.ErrorIs(t, ErrAlreadyClosed, ErrNotFound)
	require.NotErrorIs(t, ErrNotFound, ErrAlreadyClosed)
}

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("open: %w", &ConflictError{WorkerID: "W1", AreaID: "A"})
	require.True(t, IsConflict(err))
	require.Contains(t, err.Error(), "区域 A")

	var conflictErr *ConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Equal(t, "W1", conflictErr.WorkerID)

	require.False(t, IsConflict(ErrTransient))
	require.Equal(t, "人员 W2 已经在场", (&ConflictError{WorkerID: "W2"}).Error())
}
