package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient_DefaultTimeoutAndTransport(t *testing.T) {
	client := NewClient(0)
	if client.Timeout != defaultClientTimeout {
		t.Fatalf("timeout = %v, want %v", client.Timeout, defaultClientTimeout)
	}
	if client.Transport == nil {
		t.Fatal("transport must not be nil")
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.MaxIdleConns != defaultMaxIdleConns {
		t.Fatalf("MaxIdleConns = %d, want %d", transport.MaxIdleConns, defaultMaxIdleConns)
	}
	if transport.MaxIdleConnsPerHost != defaultMaxIdleConnsPerHost {
		t.Fatalf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost)
	}
	if transport.IdleConnTimeout != defaultIdleConnTimeout {
		t.Fatalf("IdleConnTimeout = %v, want %v", transport.IdleConnTimeout, defaultIdleConnTimeout)
	}
}

func TestNewClient_CapsDialAndHeaderTimeouts(t *testing.T) {
	client := NewClient(10 * time.Second)
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.TLSHandshakeTimeout != defaultDialTimeout {
		t.Fatalf("TLSHandshakeTimeout = %v, want %v", transport.TLSHandshakeTimeout, defaultDialTimeout)
	}
	if transport.ResponseHeaderTimeout != defaultResponseHeaderTimeout {
		t.Fatalf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, defaultResponseHeaderTimeout)
	}
}

func TestNewClient_UsesShortTimeoutAsProvided(t *testing.T) {
	want := 1500 * time.Millisecond
	client := NewClient(want)
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if client.Timeout != want {
		t.Fatalf("timeout = %v, want %v", client.Timeout, want)
	}
	if transport.TLSHandshakeTimeout != want {
		t.Fatalf("TLSHandshakeTimeout = %v, want %v", transport.TLSHandshakeTimeout, want)
	}
	if transport.ResponseHeaderTimeout != want {
		t.Fatalf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, want)
	}
}


func TestNewStreamClient_HasNoOverallTimeout(t *testing.T) {
	client := NewStreamClient(10 * time.Second)
	if client.Timeout != 0 {
		t.Fatalf("timeout = %v, want 0 for streaming", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.ResponseHeaderTimeout != defaultResponseHeaderTimeout {
		t.Fatalf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, defaultResponseHeaderTimeout)
	}
}

func TestInstrument_WrapsTransportWithoutMutatingOriginal(t *testing.T) {
	base := NewClient(2 * time.Second)
	wrapped := Instrument(base, "recognition")
	if wrapped == base {
		t.Fatal("Instrument must return a copy")
	}
	if _, ok := base.Transport.(*http.Transport); !ok {
		t.Fatalf("original transport mutated: %T", base.Transport)
	}
	if _, ok := wrapped.Transport.(*http.Transport); ok {
		t.Fatal("wrapped transport should not be the bare *http.Transport")
	}
	if wrapped.Timeout != base.Timeout {
		t.Fatalf("timeout = %v, want %v", wrapped.Timeout, base.Timeout)
	}
	if Instrument(nil, "x") != nil {
		t.Fatal("Instrument(nil) should return nil")
	}
}
