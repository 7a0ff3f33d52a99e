package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/powerhald/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidArgument)
	assert.Equal(t, "Invalid argument provided", err.Error())

	err = errFactory.WithMessage(errors.ErrInvalidArgument, "bad profile")
	assert.Equal(t, "bad profile", err.Error())

	err = errFactory.WithData(errors.ErrInvalidArgument, 7)
	assert.Equal(t, "Invalid argument provided: 7", err.Error())

	err = errFactory.Wrap(errors.ErrOperationFailed, stderrors.New("disk gone"))
	assert.Equal(t, "Operation failed: disk gone", err.Error())
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("governor_absent"))
	assert.Equal(t, "governor_absent", err.Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrInvalidArgument)
	outer := errFactory.Wrap(errors.ErrControlRequest, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrControlRequest))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidArgument))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}

func TestCodeOf(t *testing.T) {
	err := errors.New().WithData(errors.ErrUnsupported, "double tap to wake")
	assert.Equal(t, errors.ErrUnsupported, errors.CodeOf(err))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("write /sys/...: permission denied")
	err := errors.New().Wrap(errors.ErrApplyProfile, cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}
