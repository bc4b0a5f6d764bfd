package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ProtocolFTP selects the FTP transport used by Windows CE controllers.
	ProtocolFTP = "ftp"
	// ProtocolSSH selects the SSH/SFTP transport used by TwinCAT/BSD
	// controllers.
	ProtocolSSH = "ssh"

	// DefaultDirectory is the controller-side directory holding deployed
	// database files.
	DefaultDirectory = "/Hard Disk/ftp/pmps"

	// DefaultFTPPort and DefaultSSHPort apply when no port is configured.
	DefaultFTPPort = 21
	DefaultSSHPort = 22

	// DefaultDialTimeout bounds each connection attempt and each remote
	// operation.
	DefaultDialTimeout = 10 * time.Second
)

// DefaultCredential is the factory account present on stock controller
// images.
var DefaultCredential = Credential{Username: "Administrator", Password: "1"}

// Credential is one username/password pair tried during session setup.
type Credential struct {
	Username string
	Password string
}

// Session is one authenticated connection to a PLC file area. A session
// serves one logical operation sequence and must be closed by the caller.
// Operations are synchronous and never retry; failures surface immediately.
type Session interface {
	// List returns the raw long-format listing of the working directory.
	List() (string, error)
	// Put writes r to remoteName inside the working directory.
	Put(r io.Reader, remoteName string) error
	// Get returns the contents of remoteName inside the working directory.
	Get(remoteName string) ([]byte, error)
	// Close releases the underlying connection.
	Close() error
}

// Options configure how sessions to one PLC are opened.
type Options struct {
	// Protocol is ProtocolFTP or ProtocolSSH. Empty selects FTP.
	Protocol string
	// Port overrides the protocol default port.
	Port int
	// Directory is the remote working directory for all session operations.
	Directory string
	// Credentials are tried in order until one authenticates.
	Credentials []Credential
	// DialTimeout bounds each connection attempt and each remote operation.
	DialTimeout time.Duration
	Logger      zerolog.Logger

	// dialFn replaces protocol dialing in tests.
	dialFn dialFunc
}

type dialFunc func(ctx context.Context, host string, opts Options, cred Credential) (Session, error)

func (o Options) withDefaults() Options {
	if o.Protocol == "" {
		o.Protocol = ProtocolFTP
	}
	if o.Port == 0 {
		switch o.Protocol {
		case ProtocolSSH:
			o.Port = DefaultSSHPort
		default:
			o.Port = DefaultFTPPort
		}
	}
	if o.Directory == "" {
		o.Directory = DefaultDirectory
	}
	if len(o.Credentials) == 0 {
		o.Credentials = []Credential{DefaultCredential}
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	return o
}

// Open connects to host and authenticates with the first credential the
// server accepts; callers cannot tell which credential succeeded. The
// returned session has the working directory selected. When every credential
// fails, the error is a *ConnectError carrying one cause per attempted
// credential in configuration order.
func Open(ctx context.Context, host string, opts Options) (Session, error) {
	opts = opts.withDefaults()
	dial := opts.dialFn
	if dial == nil {
		switch opts.Protocol {
		case ProtocolFTP:
			dial = dialFTP
		case ProtocolSSH:
			dial = dialSSH
		default:
			return nil, fmt.Errorf("transport: unknown protocol %q", opts.Protocol)
		}
	}
	causes := make([]error, 0, len(opts.Credentials))
	for _, cred := range opts.Credentials {
		session, err := dial(ctx, host, opts, cred)
		if err == nil {
			opts.Logger.Debug().
				Str("host", host).
				Str("protocol", opts.Protocol).
				Str("directory", opts.Directory).
				Msg("session opened")
			return session, nil
		}
		causes = append(causes, err)
		opts.Logger.Debug().Str("host", host).Str("user", cred.Username).Err(err).Msg("credential rejected")
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ConnectError{Host: host, Causes: causes}
}
