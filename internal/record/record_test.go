package record

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"set", Set("language", "go")},
		{"tombstone", Remove("language")},
		{"empty value", Set("k", "")},
		{"empty key", Set("", "v")},
		{"newlines in value", Set("multi", "line1\nline2\r\n")},
		{"header-like bytes in value", Set("raw", string([]byte{0, 0, 0, 0, 1, 0, 3, 0, 0, 0}))},
		{"unicode", Set("emoji", "🚀🔥")},
		{"large value", Set("big", strings.Repeat("x", 64*1024))},
	}

	for _, tt := range tests {
		for _, compress := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				encoded, err := Encode(tt.rec, compress)
				require.NoError(t, err)

				decoded, err := Decode(encoded)
				require.NoError(t, err)
				assert.Equal(t, tt.rec, decoded)

				streamed, n, err := Read(bytes.NewReader(encoded), int64(len(encoded)))
				require.NoError(t, err)
				assert.Equal(t, tt.rec, streamed)
				assert.Equal(t, uint32(len(encoded)), n)
			})
		}
	}
}

func TestEncodeCompressesOnlyWhenSmaller(t *testing.T) {
	plain, err := Encode(Set("k", strings.Repeat("a", 4096)), false)
	require.NoError(t, err)
	packed, err := Encode(Set("k", strings.Repeat("a", 4096)), true)
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
	assert.Equal(t, flagCompressed, packed[5])

	tiny, err := Encode(Set("k", "v"), true)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), tiny[5])
}

func TestEncodeRejectsInvalidRecords(t *testing.T) {
	_, err := Encode(Record{Kind: 9, Key: "k"}, false)
	assert.Error(t, err)

	_, err = Encode(Record{Kind: KindRemove, Key: "k", Value: "v"}, false)
	assert.Error(t, err)

	_, err = Encode(Set(strings.Repeat("k", MaxKeySize+1), "v"), false)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestDecodeErrorsOnTruncatedData(t *testing.T) {
	encoded, err := Encode(Set("abc", "xy"), false)
	require.NoError(t, err)

	for i := 0; i < len(encoded); i++ {
		_, err := Decode(encoded[:i])
		require.Error(t, err, "length %d", i)
		assert.True(t, errors.Is(err, ErrCorruptRecord), "length %d", i)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	encoded, err := Encode(Set("abc", "xy"), false)
	require.NoError(t, err)

	_, err = Decode(append(encoded, 'z'))
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestDecodeDetectsCorruption(t *testing.T) {
	encoded, err := Encode(Set("abc", "xyz"), false)
	require.NoError(t, err)

	for i := range encoded {
		mutated := bytes.Clone(encoded)
		mutated[i] ^= 0xff

		_, err := Decode(mutated)
		assert.True(t, errors.Is(err, ErrCorruptRecord), "flipped byte %d", i)
	}
}

func TestDecodeRejectsTombstoneWithValue(t *testing.T) {
	encoded, err := Encode(Set("abc", "xyz"), false)
	require.NoError(t, err)

	encoded[4] = uint8(KindRemove)
	binary.LittleEndian.PutUint32(encoded[0:4], CalculateCRC(encoded[4:]))

	_, err = Decode(encoded)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestReadStream(t *testing.T) {
	var log bytes.Buffer
	records := []Record{Set("a", "1"), Set("b", "2"), Remove("a")}
	for _, r := range records {
		encoded, err := Encode(r, false)
		require.NoError(t, err)
		log.Write(encoded)
	}

	t.Run("reads every frame then EOF", func(t *testing.T) {
		reader := bytes.NewReader(log.Bytes())
		for _, want := range records {
			got, _, err := Read(reader, int64(reader.Len()))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		_, _, err := Read(reader, int64(reader.Len()))
		assert.Equal(t, io.EOF, err)
	})

	t.Run("torn tail reports ErrTruncated", func(t *testing.T) {
		data := log.Bytes()
		reader := bytes.NewReader(data[:len(data)-3])
		for range records[:2] {
			_, _, err := Read(reader, int64(reader.Len()))
			require.NoError(t, err)
		}

		_, _, err := Read(reader, int64(reader.Len()))
		assert.Equal(t, ErrTruncated, err)
	})

	t.Run("partial header reports ErrTruncated", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader(log.Bytes()[:HeaderSize-1]), HeaderSize-1)
		assert.Equal(t, ErrTruncated, err)
	})

	t.Run("oversized length in a short stream reports ErrTruncated", func(t *testing.T) {
		header := make([]byte, HeaderSize)
		header[4] = uint8(KindSet)
		binary.LittleEndian.PutUint32(header[6:10], 1)
		binary.LittleEndian.PutUint32(header[10:14], MaxValueSize)
		data := append(header, 'k', 'v')

		reader := bytes.NewReader(data)
		_, _, err := Read(reader, int64(len(data)))
		assert.Equal(t, ErrTruncated, err)
		// nothing past the header was consumed
		assert.Equal(t, 2, reader.Len())
	})
}

func TestEncodedByteLayout(t *testing.T) {
	encoded, err := Encode(Set("a", "b"), false)
	require.NoError(t, err)
	require.Len(t, encoded, HeaderSize+2)

	// Expected bytes structure:
	// uint32 CRC
	// uint8 Kind
	// uint8 Flags
	// uint32 KeySize
	// uint32 ValueSize
	// []byte Key
	// []byte Value
	assert.Equal(t, CalculateCRC(encoded[4:]), binary.LittleEndian.Uint32(encoded[0:4]))
	assert.Equal(t, uint8(KindSet), encoded[4])
	assert.Equal(t, uint8(0), encoded[5])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(encoded[6:10]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(encoded[10:14]))
	assert.Equal(t, byte('a'), encoded[14])
	assert.Equal(t, byte('b'), encoded[15])
}
