package internal

import (
	"net"
	"strconv"
)

// Config is where a client finds a running kvs server.
type Config struct {
	Host string
	Port int
}

const DEFAULT_HOST = "127.0.0.1"
const DEFAULT_PORT = 9999

func DefaultConfig() *Config {
	return &Config{
		Host: DEFAULT_HOST,
		Port: DEFAULT_PORT,
	}
}

// Address returns host:port, bracketing IPv6 hosts.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
