package errors_test

import (
	"errors"
	"testing"

	ferrors "github.com/dargueta/blockfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorWithMessage(t *testing.T) {
	err := ferrors.NotFound.WithMessage("no file named `bogus`")
	assert.Equal(t, "no file named `bogus`", err.Error())
	assert.True(t, errors.Is(err, ferrors.NotFound))
}

func TestErrorWrap(t *testing.T) {
	original := errors.New("disk read failed")
	err := ferrors.DeviceError.WrapError(original)

	assert.Equal(t, "device I/O failed: disk read failed", err.Error())
	assert.True(t, errors.Is(err, original))
	assert.True(t, errors.Is(err, ferrors.DeviceError))
}

func TestNewf(t *testing.T) {
	err := ferrors.Newf(ferrors.NameTooLong, "%q is %d bytes", "toolongname1234", 15)
	assert.Contains(t, err.Error(), "toolongname1234")
	assert.True(t, errors.Is(err, ferrors.NameTooLong))
}
