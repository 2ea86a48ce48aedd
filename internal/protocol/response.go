package protocol

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Status is the first byte of every response.
type Status uint8

const (
	StatusOK       Status = 0
	StatusNotFound Status = 1
	StatusError    Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NotFound"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// maxResponseSize bounds what a client will allocate for one response.
const maxResponseSize = 1 << 31

// Response is one server reply. For StatusError the payload is the error
// message.
type Response struct {
	Status  Status
	Payload string
}

func OK(payload string) Response {
	return Response{Status: StatusOK, Payload: payload}
}

func NotFound() Response {
	return Response{Status: StatusNotFound}
}

func Error(err error) Response {
	return Response{Status: StatusError, Payload: err.Error()}
}

// EncodeResponse serializes a response as
//
//	<status:uint8><len:uint32><payload>
func EncodeResponse(resp Response) ([]byte, error) {
	if uint64(len(resp.Payload)) >= maxResponseSize {
		return nil, errors.Errorf("response payload of %d bytes", len(resp.Payload))
	}

	buf := make([]byte, 5+len(resp.Payload))
	buf[0] = byte(resp.Status)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(resp.Payload)))
	copy(buf[5:], resp.Payload)

	return buf, nil
}

func DecodeResponse(r io.Reader) (Response, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Response{}, err
	}

	status := Status(header[0])
	if status > StatusError {
		return Response{}, errors.Errorf("unknown response status %d", header[0])
	}

	size := binary.BigEndian.Uint32(header[1:])
	if size >= maxResponseSize {
		return Response{}, errors.Errorf("response payload of %d bytes", size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Response{}, unexpected(err)
	}

	return Response{Status: status, Payload: string(buf)}, nil
}

// EncodeKeys packs a key list into a payload: each key as <len:uint32><key>.
func EncodeKeys(keys []string) string {
	size := 0
	for _, k := range keys {
		size += 4 + len(k)
	}

	buf := make([]byte, 0, size)
	for _, k := range keys {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(k)))
		buf = append(buf, k...)
	}
	return string(buf)
}

func DecodeKeys(payload string) ([]string, error) {
	var keys []string
	data := []byte(payload)

	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errors.New("key list: truncated length")
		}
		n := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint64(len(data)) < uint64(n) {
			return nil, errors.New("key list: truncated key")
		}
		keys = append(keys, string(data[:n]))
		data = data[n:]
	}

	return keys, nil
}
