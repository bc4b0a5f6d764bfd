package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type stubSession struct {
	listing string
	files   map[string][]byte
	puts    map[string][]byte
	closed  bool
}

func (s *stubSession) List() (string, error) { return s.listing, nil }

func (s *stubSession) Put(r io.Reader, remoteName string) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.puts == nil {
		s.puts = make(map[string][]byte)
	}
	s.puts[remoteName] = raw
	return nil
}

func (s *stubSession) Get(remoteName string) ([]byte, error) {
	raw, ok := s.files[remoteName]
	if !ok {
		return nil, fmt.Errorf("transport: %q: %w", remoteName, ErrRemoteNotFound)
	}
	return raw, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func TestOpenFallsBackToSecondCredential(t *testing.T) {
	stub := &stubSession{listing: sampleListing}
	var dialed []string
	opts := Options{
		Credentials: []Credential{
			{Username: "Administrator", Password: "wrong"},
			{Username: "service", Password: "right"},
		},
		dialFn: func(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
			dialed = append(dialed, cred.Username)
			if cred.Password != "right" {
				return nil, fmt.Errorf("login incorrect for %s", cred.Username)
			}
			return stub, nil
		},
	}
	session, err := Open(context.Background(), "plc-kfe-motion", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(dialed) != 2 || dialed[0] != "Administrator" || dialed[1] != "service" {
		t.Fatalf("unexpected credential order %v", dialed)
	}
	text, err := session.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if text != sampleListing {
		t.Fatalf("session does not behave like a first-credential session: %q", text)
	}
}

func TestOpenAggregatesAllCredentialFailures(t *testing.T) {
	opts := Options{
		Credentials: []Credential{
			{Username: "Administrator", Password: "1"},
			{Username: "service", Password: "2"},
		},
		dialFn: func(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
			return nil, fmt.Errorf("login incorrect for %s", cred.Username)
		},
	}
	session, err := Open(context.Background(), "plc-kfe-motion", opts)
	if session != nil {
		t.Fatalf("expected no session, got %v", session)
	}
	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if connectErr.Host != "plc-kfe-motion" {
		t.Fatalf("unexpected host %q", connectErr.Host)
	}
	if len(connectErr.Causes) != 2 {
		t.Fatalf("expected one cause per credential, got %d", len(connectErr.Causes))
	}
	if !strings.Contains(connectErr.Causes[0].Error(), "Administrator") ||
		!strings.Contains(connectErr.Causes[1].Error(), "service") {
		t.Fatalf("causes not in configuration order: %v", connectErr.Causes)
	}
}

func TestOpenAppliesDefaults(t *testing.T) {
	var captured Options
	opts := Options{
		dialFn: func(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
			captured = opts
			if cred != DefaultCredential {
				t.Fatalf("expected factory credential, got %+v", cred)
			}
			return &stubSession{}, nil
		},
	}
	session, err := Open(context.Background(), "plc-kfe-motion", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer session.Close()
	if captured.Protocol != ProtocolFTP {
		t.Fatalf("expected ftp default, got %q", captured.Protocol)
	}
	if captured.Port != DefaultFTPPort {
		t.Fatalf("expected default port, got %d", captured.Port)
	}
	if captured.Directory != DefaultDirectory {
		t.Fatalf("expected default directory, got %q", captured.Directory)
	}
	if captured.DialTimeout != DefaultDialTimeout {
		t.Fatalf("expected default timeout, got %v", captured.DialTimeout)
	}
}

func TestOpenRejectsUnknownProtocol(t *testing.T) {
	_, err := Open(context.Background(), "plc-kfe-motion", Options{Protocol: "telnet"})
	if err == nil || !strings.Contains(err.Error(), "unknown protocol") {
		t.Fatalf("expected unknown protocol error, got %v", err)
	}
}

func TestOpenStopsAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	opts := Options{
		Credentials: []Credential{
			{Username: "a", Password: "a"},
			{Username: "b", Password: "b"},
			{Username: "c", Password: "c"},
		},
		dialFn: func(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
			attempts++
			cancel()
			return nil, errors.New("connection reset")
		},
	}
	_, err := Open(ctx, "plc-kfe-motion", opts)
	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt after cancellation, got %d", attempts)
	}
	if len(connectErr.Causes) != 1 {
		t.Fatalf("expected the attempted cause only, got %d", len(connectErr.Causes))
	}
}

func TestConnectErrorUnwrapsCauses(t *testing.T) {
	cause := fmt.Errorf("refused: %w", ErrRemoteNotFound)
	err := &ConnectError{Host: "plc", Causes: []error{errors.New("login incorrect"), cause}}
	if !errors.Is(err, ErrRemoteNotFound) {
		t.Fatalf("expected cause chain to unwrap")
	}
}
