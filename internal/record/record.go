package record

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/pkg/errors"
)

// Kind identifies the log operation a Record carries.
type Kind uint8

const (
	KindSet    Kind = 1
	KindRemove Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Record is a single log entry. A KindRemove record (tombstone) never
// carries a value.
type Record struct {
	Kind  Kind
	Key   string
	Value string
}

// Set builds a record that stores value under key.
func Set(key, value string) Record {
	return Record{Kind: KindSet, Key: key, Value: value}
}

// Remove builds a tombstone for key.
func Remove(key string) Record {
	return Record{Kind: KindRemove, Key: key}
}

// CRC (4) + Kind (1) + Flags (1) + KeySize (4) + ValueSize (4)
const HeaderSize = 14

const (
	MaxKeySize   = 1 << 20
	MaxValueSize = 1 << 30
)

const flagCompressed uint8 = 1 << 0

var (
	// ErrCorruptRecord is returned for any frame that cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrTruncated is returned by Read when the stream ends in the middle of
	// a frame.
	ErrTruncated = errors.New("truncated record")

	ErrTooLarge = errors.New("record too large")
)

// Encode serializes r into a self-delimiting frame:
//
//	<crc:uint32><kind:uint8><flags:uint8><key_size:uint32><value_size:uint32><key><value>
//
// All integers are little endian. The CRC covers every byte after itself.
// When compress is set the value is stored s2-encoded, but only if that
// makes it smaller.
func Encode(r Record, compress bool) ([]byte, error) {
	if r.Kind != KindSet && r.Kind != KindRemove {
		return nil, errors.Errorf("encode: unknown record kind %d", r.Kind)
	}
	if r.Kind == KindRemove && r.Value != "" {
		return nil, errors.New("encode: tombstone with a value")
	}
	if len(r.Key) > MaxKeySize {
		return nil, errors.Wrapf(ErrTooLarge, "key of %d bytes", len(r.Key))
	}
	if len(r.Value) > MaxValueSize {
		return nil, errors.Wrapf(ErrTooLarge, "value of %d bytes", len(r.Value))
	}

	var flags uint8
	value := []byte(r.Value)
	if compress && len(value) > 0 {
		if packed := s2.Encode(nil, value); len(packed) < len(value) {
			value = packed
			flags |= flagCompressed
		}
	}

	buf := make([]byte, HeaderSize+len(r.Key)+len(value))
	buf[4] = uint8(r.Kind)
	buf[5] = flags
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(len(value)))
	copy(buf[HeaderSize:], r.Key)
	copy(buf[HeaderSize+len(r.Key):], value)
	binary.LittleEndian.PutUint32(buf[0:4], CalculateCRC(buf[4:]))

	return buf, nil
}

// Decode parses exactly one frame. Trailing bytes are treated as corruption.
func Decode(data []byte) (Record, error) {
	if len(data) < HeaderSize {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "frame of %d bytes is shorter than the header", len(data))
	}

	keySize, valueSize, err := parseHeader(data[:HeaderSize])
	if err != nil {
		return Record{}, err
	}

	if want := HeaderSize + int(keySize) + int(valueSize); len(data) != want {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "frame is %d bytes, header says %d", len(data), want)
	}

	return decodeBody(data)
}

// Read pulls one frame from r and returns the record together with the
// frame length. remaining is the number of bytes left in r. A header whose
// frame would run past it is reported as ErrTruncated before the body is
// read. A clean end of stream yields io.EOF.
func Read(r io.Reader, remaining int64) (Record, uint32, error) {
	header := make([]byte, HeaderSize)
	if n, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF && n == 0 {
			return Record{}, 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return Record{}, 0, ErrTruncated
		}
		return Record{}, 0, err
	}

	keySize, valueSize, err := parseHeader(header)
	if err != nil {
		return Record{}, 0, err
	}

	size := int64(HeaderSize) + int64(keySize) + int64(valueSize)
	if size > remaining {
		return Record{}, 0, ErrTruncated
	}

	frame := make([]byte, size)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Record{}, 0, ErrTruncated
		}
		return Record{}, 0, err
	}

	rec, err := decodeBody(frame)
	if err != nil {
		return Record{}, 0, err
	}

	return rec, uint32(len(frame)), nil
}

func parseHeader(header []byte) (keySize, valueSize uint32, err error) {
	kind := Kind(header[4])
	flags := header[5]
	keySize = binary.LittleEndian.Uint32(header[6:10])
	valueSize = binary.LittleEndian.Uint32(header[10:14])

	switch {
	case kind != KindSet && kind != KindRemove:
		return 0, 0, errors.Wrapf(ErrCorruptRecord, "unknown kind %d", kind)
	case flags&^flagCompressed != 0:
		return 0, 0, errors.Wrapf(ErrCorruptRecord, "unknown flags %#x", flags)
	case keySize > MaxKeySize:
		return 0, 0, errors.Wrapf(ErrCorruptRecord, "key size %d", keySize)
	case valueSize > MaxValueSize:
		return 0, 0, errors.Wrapf(ErrCorruptRecord, "value size %d", valueSize)
	case kind == KindRemove && (valueSize != 0 || flags != 0):
		return 0, 0, errors.Wrap(ErrCorruptRecord, "tombstone with a value")
	}

	return keySize, valueSize, nil
}

// decodeBody expects a frame whose header already passed parseHeader and
// whose length matches it.
func decodeBody(frame []byte) (Record, error) {
	crc := binary.LittleEndian.Uint32(frame[0:4])
	if !ValidateCRC(frame[4:], crc) {
		return Record{}, errors.Wrap(ErrCorruptRecord, "checksum mismatch")
	}

	kind := Kind(frame[4])
	flags := frame[5]
	keySize := binary.LittleEndian.Uint32(frame[6:10])

	key := frame[HeaderSize : HeaderSize+keySize]
	value := frame[HeaderSize+keySize:]

	if flags&flagCompressed != 0 {
		n, err := s2.DecodedLen(value)
		if err != nil || n > MaxValueSize {
			return Record{}, errors.Wrap(ErrCorruptRecord, "bad compressed value")
		}
		value, err = s2.Decode(nil, value)
		if err != nil {
			return Record{}, errors.Wrap(ErrCorruptRecord, err.Error())
		}
	}

	return Record{
		Kind:  kind,
		Key:   string(key),
		Value: string(value),
	}, nil
}
