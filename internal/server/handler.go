// Package server exposes a store over TCP using the framing in
// internal/protocol. Every connection is served by its own goroutine and
// commands on one connection are answered in order.
package server

import (
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
)

// Engine is the part of a store the server needs. *core.Store satisfies it.
type Engine interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Exists(key string) bool
	Len() int
	Keys() []string
	Compact() error
}

var _ Engine = (*core.Store)(nil)

type Server struct {
	engine Engine
}

func New(engine Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr()
	log.Debug("client %s connected", remote)

	for {
		command, err := protocol.DecodeCommand(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Warn("client %s: %v", remote, err)
			}
			log.Debug("client %s disconnected", remote)
			return
		}

		resp := s.Handle(command)

		encoded, err := protocol.EncodeResponse(resp)
		if err != nil {
			log.Error("encoding response for %s: %v", command.Cmd, err)
			encoded, _ = protocol.EncodeResponse(protocol.Error(err))
		}

		if _, err := conn.Write(encoded); err != nil {
			log.Warn("client %s: %v", remote, err)
			return
		}
	}
}

// Handle runs one command against the engine.
func (s *Server) Handle(command *protocol.Command) protocol.Response {
	switch strings.ToLower(command.Cmd) {
	case protocol.CmdPing:
		return protocol.OK("PONG!")
	case protocol.CmdSet:
		return s.handleSet(command.Key, command.Val)
	case protocol.CmdGet:
		return s.handleGet(command.Key)
	case protocol.CmdRemove:
		return s.handleRemove(command.Key)
	case protocol.CmdExists:
		return protocol.OK(strconv.FormatBool(s.engine.Exists(command.Key)))
	case protocol.CmdCount:
		return protocol.OK(strconv.Itoa(s.engine.Len()))
	case protocol.CmdKeys:
		return protocol.OK(protocol.EncodeKeys(s.engine.Keys()))
	case protocol.CmdCompact:
		return s.handleCompact()
	default:
		return protocol.Error(errors.Errorf("invalid command %q", command.Cmd))
	}
}

func (s *Server) handleGet(key string) protocol.Response {
	value, ok, err := s.engine.Get(key)
	if err != nil {
		log.Error("get %q: %v", key, err)
		return protocol.Error(err)
	}
	if !ok {
		return protocol.NotFound()
	}

	return protocol.OK(value)
}

func (s *Server) handleSet(key, value string) protocol.Response {
	if err := s.engine.Set(key, value); err != nil {
		log.Error("set %q: %v", key, err)
		return protocol.Error(err)
	}

	return protocol.OK("ok")
}

func (s *Server) handleRemove(key string) protocol.Response {
	err := s.engine.Remove(key)
	if errors.Is(err, core.ErrKeyNotFound) {
		return protocol.NotFound()
	}
	if err != nil {
		log.Error("remove %q: %v", key, err)
		return protocol.Error(err)
	}

	return protocol.OK("ok")
}

func (s *Server) handleCompact() protocol.Response {
	if err := s.engine.Compact(); err != nil {
		log.Error("compact: %v", err)
		return protocol.Error(err)
	}

	return protocol.OK("ok")
}
