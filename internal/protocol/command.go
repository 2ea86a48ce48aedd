package protocol

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

// Command names understood by the server.
const (
	CmdPing    = "ping"
	CmdSet     = "set"
	CmdGet     = "get"
	CmdRemove  = "rm"
	CmdExists  = "exists"
	CmdCount   = "count"
	CmdKeys    = "keys"
	CmdCompact = "compact"
)

// readChunk bounds the up-front allocation for a command payload.
const readChunk = 64 * 1024

// ErrCommandTooLarge is returned for a command whose key or value could
// never be stored.
var ErrCommandTooLarge = errors.New("command too large")

// Command is one decoded client request. The meaning of Key and Val depends
// on Cmd; commands that take no key leave them empty.
type Command struct {
	Cmd string
	Key string
	Val string
}

// EncodeCommand serializes a client command into its wire format:
//
//	<cmd_len:uint8><key_len:uint32><val_len:uint32><cmd><key><val>
//
// Integers are big-endian. The command name is limited to 255 bytes.
func EncodeCommand(cmd, key, val string) ([]byte, error) {
	if len(cmd) > 255 {
		return nil, errors.Errorf("command name of %d bytes", len(cmd))
	}
	if len(key) > record.MaxKeySize || len(val) > record.MaxValueSize {
		return nil, ErrCommandTooLarge
	}

	buf := &bytes.Buffer{}
	buf.Grow(9 + len(cmd) + len(key) + len(val))

	buf.WriteByte(uint8(len(cmd)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(key))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(val))); err != nil {
		return nil, err
	}

	buf.WriteString(cmd)
	buf.WriteString(key)
	buf.WriteString(val)

	return buf.Bytes(), nil
}

// DecodeCommand reads one command from r, blocking until it is complete.
// io.EOF is returned only when r ends before the first byte.
func DecodeCommand(r io.Reader) (*Command, error) {
	var header [9]byte
	if _, err := io.ReadFull(r, header[:1]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, header[1:]); err != nil {
		return nil, unexpected(err)
	}

	cmdLen := uint32(header[0])
	keyLen := binary.BigEndian.Uint32(header[1:5])
	valLen := binary.BigEndian.Uint32(header[5:9])

	if keyLen > record.MaxKeySize || valLen > record.MaxValueSize {
		return nil, ErrCommandTooLarge
	}

	// The lengths come from the client, so the buffer grows with the bytes
	// that actually arrive instead of being sized from the header.
	total := int64(cmdLen) + int64(keyLen) + int64(valLen)
	var buf bytes.Buffer
	buf.Grow(int(min(total, readChunk)))
	if _, err := io.CopyN(&buf, r, total); err != nil {
		return nil, unexpected(err)
	}
	payload := buf.Bytes()

	return &Command{
		Cmd: string(payload[:cmdLen]),
		Key: string(payload[cmdLen : cmdLen+keyLen]),
		Val: string(payload[cmdLen+keyLen:]),
	}, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
