package segment

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

func TestFailedAppendMarksSegmentBroken(t *testing.T) {
	f, err := Create(t.TempDir(), 1)
	require.NoError(t, err)

	frame, err := record.Encode(record.Set("a", "1"), false)
	require.NoError(t, err)

	_, _, err = f.Append(frame)
	require.NoError(t, err)

	// pull the handle out from under the segment so the write and the
	// rollback both fail
	require.NoError(t, f.f.Close())

	_, _, err = f.Append(frame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBroken), "got %v", err)

	_, _, err = f.Append(frame)
	assert.True(t, errors.Is(err, ErrBroken), "got %v", err)

	_, _, err = f.Write(frame)
	assert.True(t, errors.Is(err, ErrBroken), "got %v", err)

	assert.Equal(t, int64(len(frame)), f.Size())
}

func TestCloseTwice(t *testing.T) {
	f, err := Create(t.TempDir(), 1)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Remove())
}
