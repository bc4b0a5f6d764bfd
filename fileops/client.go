package fileops

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"plcdb/journal"
	"plcdb/transport"
)

// ErrLocalNotFound indicates the local file named in an operation does not
// exist. It is reported before any connection is attempted.
var ErrLocalNotFound = errors.New("fileops: local file not found")

// HostFilename returns the canonical database filename deployed on a
// controller, derived from its hostname.
func HostFilename(host string) string {
	return host + ".json"
}

// ClientOptions configure a file operations client.
type ClientOptions struct {
	// Transport returns connection options for a host. Nil means defaults
	// for every host.
	Transport func(host string) transport.Options
	// Journal records operation history when set. Journal failures are
	// logged and never fail the operation itself.
	Journal *journal.Store
	Logger  zerolog.Logger
}

// Client performs file operations against PLC controllers. Every operation
// opens one session, runs one logical sequence, and closes the session.
type Client struct {
	transport func(host string) transport.Options
	journal   *journal.Store
	log       zerolog.Logger

	// openFn replaces session dialing in tests.
	openFn func(ctx context.Context, host string, opts transport.Options) (transport.Session, error)
}

// NewClient creates a file operations client.
func NewClient(options ClientOptions) *Client {
	if options.Transport == nil {
		options.Transport = func(string) transport.Options { return transport.Options{} }
	}
	return &Client{
		transport: options.Transport,
		journal:   options.Journal,
		log:       options.Logger,
		openFn:    transport.Open,
	}
}

func (c *Client) open(ctx context.Context, host string) (transport.Session, transport.Options, error) {
	opts := c.transport(host)
	opts.Logger = c.log
	session, err := c.openFn(ctx, host, opts)
	return session, opts, err
}

// record writes one journal row, best effort.
func (c *Client) record(op journal.Operation) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(op); err != nil {
		c.log.Warn().Err(err).Str("host", op.Host).Str("verb", op.Verb).Msg("journal write failed")
	}
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
