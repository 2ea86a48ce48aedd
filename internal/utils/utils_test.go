package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStringIntoCommandAndArguments(t *testing.T) {
	tests := []struct {
		line            string
		cmd, key, value string
	}{
		{"ping", "ping", "", ""},
		{"GET foo", "get", "foo", ""},
		{"set foo bar", "set", "foo", "bar"},
		{`set city "new york"`, "set", "city", "new york"},
		{"set msg hello   there world", "set", "msg", "hello there world"},
		{`set 'a key' ''`, "set", "a key", ""},
		{`rm "quoted \"key\""`, "rm", `quoted "key"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, key, value, err := SplitStringIntoCommandAndArguments(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestSplitStringIntoCommandAndArgumentsErrors(t *testing.T) {
	_, _, _, err := SplitStringIntoCommandAndArguments(`set foo "unterminated`)
	assert.Error(t, err)

	_, _, _, err = SplitStringIntoCommandAndArguments("   ")
	assert.Error(t, err)
}

func TestTruncateAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, TruncateAt(f, 4))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))

	assert.True(t, PathExists(path))
	assert.False(t, PathExists(path+".missing"))
}

func TestListenReturnsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		ListenForProcessInterruptOrKill(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("did not return after context was done")
	}
}
