package protocol_test

import (
	"bytes"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
)

func TestEncodeDecodeResponse(t *testing.T) {
	tests := []struct {
		name     string
		response protocol.Response
	}{
		{"simple response", protocol.OK("ok")},
		{"not found", protocol.NotFound()},
		{"empty response", protocol.OK("")},
		{"error response", protocol.Error(errors.New("key not found"))},
		{"multiline response", protocol.OK("line1\nline2\nline3")},
		{"unicode response", protocol.OK("こんにちは世界")},
		{"large response", protocol.OK(string(make([]byte, 2048)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			payload, err := protocol.EncodeResponse(tt.response)
			if err != nil {
				t.Fatalf("EncodeResponse failed: %v", err)
			}

			go func() {
				_, _ = client.Write(payload)
			}()

			resp, err := protocol.DecodeResponse(server)
			if err != nil {
				t.Fatalf("DecodeResponse failed: %v", err)
			}

			if resp != tt.response {
				t.Errorf("Response mismatch: got %+v, want %+v", resp, tt.response)
			}
		})
	}
}

func TestDecodeResponse_TruncatedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeResponse(protocol.OK("hello world"))
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	go func() {
		_, _ = client.Write(payload[:len(payload)/2])
		client.Close()
	}()

	if _, err := protocol.DecodeResponse(server); err == nil {
		t.Fatalf("expected error on truncated response, got nil")
	}
}

func TestDecodeResponse_BlocksUntilComplete(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeResponse(protocol.OK("blocking test"))
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	done := make(chan struct{})

	go func() {
		_, _ = protocol.DecodeResponse(server)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("DecodeResponse returned early")
	case <-time.After(50 * time.Millisecond):
	}

	_, _ = client.Write(payload)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("DecodeResponse did not return after full payload")
	}
}

func TestDecodeResponse_UnknownStatus(t *testing.T) {
	payload := []byte{9, 0, 0, 0, 0}

	if _, err := protocol.DecodeResponse(bytes.NewReader(payload)); err == nil {
		t.Fatalf("expected error on unknown status, got nil")
	}
}

func TestEncodeDecodeKeys(t *testing.T) {
	tests := [][]string{
		nil,
		{"a"},
		{"a", "", "b c", "line\nbreak"},
	}

	for _, keys := range tests {
		got, err := protocol.DecodeKeys(protocol.EncodeKeys(keys))
		if err != nil {
			t.Fatalf("DecodeKeys failed: %v", err)
		}
		if !reflect.DeepEqual(got, keys) {
			t.Errorf("keys mismatch: got %q, want %q", got, keys)
		}
	}

	if _, err := protocol.DecodeKeys(protocol.EncodeKeys([]string{"abc"})[:5]); err == nil {
		t.Fatalf("expected error on truncated key list")
	}
}
