package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// sshSession pairs an exec channel for listings with an SFTP subsystem for
// transfers.
type sshSession struct {
	host   string
	dir    string
	client *ssh.Client
	files  *sftp.Client
	log    zerolog.Logger
}

func dialSSH(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(opts.Port))
	dialer := net.Dialer{Timeout: opts.DialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial ssh %s: %w", addr, err)
	}
	cfg := &ssh.ClientConfig{
		User: cred.Username,
		Auth: []ssh.AuthMethod{ssh.Password(cred.Password)},
		// Controller images ship without provisioned host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.DialTimeout,
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("transport: ssh handshake %s as %s: %w", host, cred.Username, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	files, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: sftp subsystem on %s: %w", host, err)
	}
	if err := files.MkdirAll(opts.Directory); err != nil {
		files.Close()
		client.Close()
		return nil, fmt.Errorf("transport: prepare %q on %s: %w", opts.Directory, host, err)
	}
	return &sshSession{host: host, dir: opts.Directory, client: client, files: files, log: opts.Logger}, nil
}

// List runs ls in the working directory with an epoch-seconds date format so
// the output carries the seven-token shape ParseListing expects.
func (s *sshSession) List() (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("transport: ssh session on %s: %w", s.host, err)
	}
	defer session.Close()
	out, err := session.Output("cd " + shellQuote(s.dir) + " && ls -l -D %s")
	if err != nil {
		return "", fmt.Errorf("transport: ssh list %q on %s: %w", s.dir, s.host, err)
	}
	return string(out), nil
}

func (s *sshSession) Get(name string) ([]byte, error) {
	remote := path.Join(s.dir, name)
	f, err := s.files.Open(remote)
	if err != nil {
		return nil, s.pathError("get", remote, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("transport: sftp get %q on %s: %w", remote, s.host, err)
	}
	s.log.Debug().Str("host", s.host).Str("file", name).Int("bytes", len(raw)).Msg("sftp get")
	return raw, nil
}

func (s *sshSession) Put(r io.Reader, name string) error {
	remote := path.Join(s.dir, name)
	f, err := s.files.Create(remote)
	if err != nil {
		return s.pathError("put", remote, err)
	}
	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		_ = s.files.Remove(remote)
		return fmt.Errorf("transport: sftp put %q on %s: %w", remote, s.host, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("transport: sftp put %q on %s: %w", remote, s.host, err)
	}
	s.log.Debug().Str("host", s.host).Str("file", name).Int64("bytes", written).Msg("sftp put")
	return nil
}

func (s *sshSession) Close() error {
	filesErr := s.files.Close()
	clientErr := s.client.Close()
	if filesErr != nil {
		return filesErr
	}
	return clientErr
}

func (s *sshSession) pathError(op, remote string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("transport: sftp %s %q on %s: %w", op, remote, s.host, ErrRemoteNotFound)
	}
	return fmt.Errorf("transport: sftp %s %q on %s: %w", op, remote, s.host, err)
}

// shellQuote wraps p in single quotes for the remote shell.
func shellQuote(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
