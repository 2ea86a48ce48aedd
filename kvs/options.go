package kvs

import (
	"time"

	"github.com/0xRadioAc7iv/go-kvs/internal"
)

type options struct {
	internal.Config
	dialTimeout time.Duration
}

type Option func(*options)

func WithHost(host string) Option {
	return func(o *options) {
		o.Host = host
	}
}

func WithPort(port int) Option {
	return func(o *options) {
		o.Port = port
	}
}

// WithDialTimeout bounds how long Connect waits for the server. Zero waits
// as long as the operating system allows.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}
