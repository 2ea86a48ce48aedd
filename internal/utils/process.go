package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xRadioAc7iv/go-kvs/internal/log"
)

// ListenForProcessInterruptOrKill blocks until it receives an interrupt (Ctrl+C)
// or termination signal (SIGTERM), or ctx is done, then returns.
func ListenForProcessInterruptOrKill(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}
}
