package server

import (
	"context"
	"net"
	"sync"

	"github.com/0xRadioAc7iv/go-kvs/internal/log"
)

// ListenAndServe listens on addr and serves connections until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// every open connection and waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info("listening on %s", ln.Addr())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		conns = map[net.Conn]struct{}{}
	)

	// When ctx is cancelled, close listener and connections
	stop := context.AfterFunc(ctx, func() {
		ln.Close()

		mu.Lock()
		for c := range conns {
			c.Close()
		}
		mu.Unlock()
	})
	defer stop()

	// Accept Loop
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept fails once ln is closed. That is how the loop ends.
			select {
			case <-ctx.Done():
				wg.Wait()
				log.Info("stopped listening on %s", ln.Addr())
				return nil
			default:
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.Warn("error accepting connection: %v", err)
				continue
			}
			wg.Wait()
			return err
		}

		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			conn.Close()
			continue
		}
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
			}()

			s.handleConn(conn)
		}()
	}
}
