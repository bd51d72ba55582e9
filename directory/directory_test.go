package directory_test

import (
	"testing"

	"github.com/dargueta/blockfs/block"
	"github.com/dargueta/blockfs/directory"
	ferrors "github.com/dargueta/blockfs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFindList(t *testing.T) {
	dir := directory.New(4)

	idx, err := dir.Create("a")
	require.NoError(t, err)

	found, ok := dir.Find("a")
	require.True(t, ok)
	assert.Equal(t, idx, found)

	assert.Equal(t, []string{"a"}, dir.List())
}

func TestCreateRejectsDuplicate(t *testing.T) {
	dir := directory.New(4)
	_, err := dir.Create("a")
	require.NoError(t, err)

	_, err = dir.Create("a")
	assert.ErrorIs(t, err, ferrors.Exists)
}

func TestCreateRejectsTooLongName(t *testing.T) {
	dir := directory.New(4)
	_, err := dir.Create("this-name-is-too-long")
	assert.ErrorIs(t, err, ferrors.NameTooLong)
}

func TestCreateDirectoryFull(t *testing.T) {
	dir := directory.New(2)
	_, err := dir.Create("a")
	require.NoError(t, err)
	_, err = dir.Create("b")
	require.NoError(t, err)

	_, err = dir.Create("c")
	assert.ErrorIs(t, err, ferrors.DirectoryFull)
}

func TestDeleteUnknown(t *testing.T) {
	dir := directory.New(4)
	_, _, err := dir.Delete("nope")
	assert.ErrorIs(t, err, ferrors.NotFound)
}

func TestDeleteRefusedWhileBusy(t *testing.T) {
	dir := directory.New(4)
	idx, _ := dir.Create("a")
	dir.IncRef(idx)

	_, _, err := dir.Delete("a")
	assert.ErrorIs(t, err, ferrors.Busy)

	dir.DecRef(idx)
	_, _, err = dir.Delete("a")
	assert.NoError(t, err)
	assert.Empty(t, dir.List())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dir := directory.New(4)
	idx, _ := dir.Create("hello")
	dir.SetSize(idx, 42, block.ID(11))
	dir.IncRef(idx) // ref counts must not survive the round trip

	decoded, err := directory.Decode(dir.Encode(), 4)
	require.NoError(t, err)

	got, ok := decoded.Find("hello")
	require.True(t, ok)
	entry := decoded.Get(got)
	assert.EqualValues(t, 42, entry.Size)
	assert.Equal(t, block.ID(11), entry.Head)
	assert.EqualValues(t, 0, entry.RefCnt)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := directory.Decode(make([]byte, 3), 4)
	assert.Error(t, err)
}
