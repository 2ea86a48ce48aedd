package kvs

import (
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
)

// ErrKeyNotFound is returned by Remove for a key the server does not hold.
var ErrKeyNotFound = errors.New("key not found")

// ServerError carries an error message returned by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// Client is a single connection to a server. It is safe for concurrent use;
// requests are sent one at a time.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

func Connect(opts ...Option) (*Client, error) {
	o := options{Config: *internal.DefaultConfig()}

	for _, opt := range opts {
		opt(&o)
	}

	conn, err := net.DialTimeout("tcp", o.Address(), o.dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Ping() error {
	_, err := c.call(protocol.CmdPing, "", "")
	return err
}

// Get returns the value stored under key. ok is false when the key is
// absent.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	resp, err := c.Execute(protocol.CmdGet, key, "")
	if err != nil {
		return "", false, err
	}

	switch resp.Status {
	case protocol.StatusNotFound:
		return "", false, nil
	case protocol.StatusError:
		return "", false, &ServerError{Message: resp.Payload}
	}

	return resp.Payload, true, nil
}

func (c *Client) Set(key, value string) error {
	_, err := c.call(protocol.CmdSet, key, value)
	return err
}

func (c *Client) Remove(key string) error {
	_, err := c.call(protocol.CmdRemove, key, "")
	return err
}

func (c *Client) Exists(key string) (bool, error) {
	payload, err := c.call(protocol.CmdExists, key, "")
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(payload)
}

func (c *Client) Count() (int, error) {
	payload, err := c.call(protocol.CmdCount, "", "")
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(payload)
}

// Keys lists every key on the server in ascending order.
func (c *Client) Keys() ([]string, error) {
	payload, err := c.call(protocol.CmdKeys, "", "")
	if err != nil {
		return nil, err
	}

	return protocol.DecodeKeys(payload)
}

func (c *Client) Compact() error {
	_, err := c.call(protocol.CmdCompact, "", "")
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute sends a raw command and returns the server's response as is.
func (c *Client) Execute(cmd, key, value string) (protocol.Response, error) {
	payload, err := protocol.EncodeCommand(cmd, key, value)
	if err != nil {
		return protocol.Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write(payload); err != nil {
		return protocol.Response{}, errors.Wrap(err, cmd)
	}

	resp, err := protocol.DecodeResponse(c.conn)
	if err != nil {
		return protocol.Response{}, errors.Wrap(err, cmd)
	}

	return resp, nil
}

// call runs a command and turns non-OK statuses into errors.
func (c *Client) call(cmd, key, value string) (string, error) {
	resp, err := c.Execute(cmd, key, value)
	if err != nil {
		return "", err
	}

	switch resp.Status {
	case protocol.StatusNotFound:
		return "", ErrKeyNotFound
	case protocol.StatusError:
		return "", &ServerError{Message: resp.Payload}
	}

	return resp.Payload, nil
}
