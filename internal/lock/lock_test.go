package lock_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
)

func TestLockFile(t *testing.T) {
	t.Run("second lock on a directory fails while the first is held", func(t *testing.T) {
		dir := t.TempDir()

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}

		_, err = lock.LockDirectory(dir)
		if !errors.Is(err, lock.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}

		lock.UnlockDirectory(f)
	})

	t.Run("lock can be taken again after release", func(t *testing.T) {
		dir := t.TempDir()

		f, err := lock.LockDirectory(dir)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}
		lock.UnlockDirectory(f)

		f, err = lock.LockDirectory(dir)
		if err != nil {
			t.Errorf("lock was supposed to be free: %v", err)
		}
		lock.UnlockDirectory(f)
	})
}
