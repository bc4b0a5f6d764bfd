package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ftpSession speaks the FTP control protocol directly. Controller FTP
// servers answer LIST with long-format unix lines, which ParseListing
// consumes; transfers run over passive-mode data connections in binary mode.
type ftpSession struct {
	host    string
	conn    net.Conn
	control *textproto.Conn
	timeout time.Duration
	log     zerolog.Logger
}

func dialFTP(ctx context.Context, host string, opts Options, cred Credential) (Session, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(opts.Port))
	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial ftp %s: %w", addr, err)
	}
	session := &ftpSession{
		host:    host,
		conn:    conn,
		control: textproto.NewConn(conn),
		timeout: opts.DialTimeout,
		log:     opts.Logger,
	}
	if err := session.login(cred, opts.Directory); err != nil {
		session.control.Close()
		return nil, err
	}
	return session, nil
}

func (s *ftpSession) login(cred Credential, directory string) error {
	if err := s.arm(); err != nil {
		return err
	}
	if _, _, err := s.control.ReadResponse(220); err != nil {
		return fmt.Errorf("transport: ftp greeting from %s: %w", s.host, err)
	}
	code, _, err := s.cmd(0, "USER %s", cred.Username)
	if err != nil {
		return fmt.Errorf("transport: ftp user %s on %s: %w", cred.Username, s.host, err)
	}
	switch code {
	case 230:
	case 331:
		if _, _, err := s.cmd(230, "PASS %s", cred.Password); err != nil {
			return fmt.Errorf("transport: ftp login %s on %s: %w", cred.Username, s.host, err)
		}
	default:
		return fmt.Errorf("transport: ftp user %s on %s: unexpected reply %d", cred.Username, s.host, code)
	}
	if _, _, err := s.cmd(200, "TYPE I"); err != nil {
		return fmt.Errorf("transport: ftp binary mode on %s: %w", s.host, err)
	}
	if _, _, err := s.cmd(250, "CWD %s", directory); err != nil {
		return s.pathError("cwd", directory, err)
	}
	return nil
}

// arm bounds the next control exchange.
func (s *ftpSession) arm() error {
	return s.conn.SetDeadline(time.Now().Add(s.timeout))
}

func (s *ftpSession) cmd(expect int, format string, args ...any) (int, string, error) {
	if err := s.arm(); err != nil {
		return 0, "", err
	}
	id, err := s.control.Cmd(format, args...)
	if err != nil {
		return 0, "", err
	}
	s.control.StartResponse(id)
	defer s.control.EndResponse(id)
	return s.control.ReadResponse(expect)
}

// readReply consumes a reply that arrives without a command, such as the
// transfer-complete code after a data connection closes.
func (s *ftpSession) readReply(expect int) error {
	if err := s.arm(); err != nil {
		return err
	}
	_, _, err := s.control.ReadResponse(expect)
	return err
}

// pathError maps the server's file-unavailable reply onto ErrRemoteNotFound.
func (s *ftpSession) pathError(op, path string, err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == 550 {
		return fmt.Errorf("transport: ftp %s %q on %s: %w", op, path, s.host, ErrRemoteNotFound)
	}
	return fmt.Errorf("transport: ftp %s %q on %s: %w", op, path, s.host, err)
}

// openDataConn negotiates a passive-mode data connection. The advertised
// address is ignored in favor of the control host; controller images can
// advertise interface addresses that are not routable from the workstation.
func (s *ftpSession) openDataConn() (net.Conn, error) {
	_, msg, err := s.cmd(227, "PASV")
	if err != nil {
		return nil, err
	}
	port, err := parsePassivePort(msg)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.Dial("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// parsePassivePort extracts the data port from a 227 reply of the form
// "Entering Passive Mode (h1,h2,h3,h4,p1,p2)".
func parsePassivePort(msg string) (int, error) {
	start := strings.Index(msg, "(")
	end := strings.Index(msg, ")")
	if start < 0 || end < start {
		return 0, fmt.Errorf("transport: malformed passive reply %q", msg)
	}
	parts := strings.Split(msg[start+1:end], ",")
	if len(parts) != 6 {
		return 0, fmt.Errorf("transport: malformed passive reply %q", msg)
	}
	high, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return 0, fmt.Errorf("transport: malformed passive reply %q", msg)
	}
	low, err := strconv.Atoi(strings.TrimSpace(parts[5]))
	if err != nil {
		return 0, fmt.Errorf("transport: malformed passive reply %q", msg)
	}
	return high*256 + low, nil
}

func (s *ftpSession) List() (string, error) {
	data, err := s.openDataConn()
	if err != nil {
		return "", fmt.Errorf("transport: ftp list on %s: %w", s.host, err)
	}
	defer data.Close()
	if _, _, err := s.cmd(1, "LIST"); err != nil {
		return "", s.pathError("list", ".", err)
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("transport: ftp list on %s: %w", s.host, err)
	}
	data.Close()
	if err := s.readReply(2); err != nil {
		return "", fmt.Errorf("transport: ftp list on %s: %w", s.host, err)
	}
	return string(raw), nil
}

func (s *ftpSession) Get(name string) ([]byte, error) {
	data, err := s.openDataConn()
	if err != nil {
		return nil, fmt.Errorf("transport: ftp get %q on %s: %w", name, s.host, err)
	}
	defer data.Close()
	if _, _, err := s.cmd(1, "RETR %s", name); err != nil {
		return nil, s.pathError("get", name, err)
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("transport: ftp get %q on %s: %w", name, s.host, err)
	}
	data.Close()
	if err := s.readReply(2); err != nil {
		return nil, fmt.Errorf("transport: ftp get %q on %s: %w", name, s.host, err)
	}
	s.log.Debug().Str("host", s.host).Str("file", name).Int("bytes", len(raw)).Msg("ftp get")
	return raw, nil
}

func (s *ftpSession) Put(r io.Reader, name string) error {
	data, err := s.openDataConn()
	if err != nil {
		return fmt.Errorf("transport: ftp put %q on %s: %w", name, s.host, err)
	}
	defer data.Close()
	if _, _, err := s.cmd(1, "STOR %s", name); err != nil {
		return s.pathError("put", name, err)
	}
	written, err := io.Copy(data, r)
	if err != nil {
		data.Close()
		_ = s.readReply(0)
		_, _, _ = s.cmd(0, "DELE %s", name)
		return fmt.Errorf("transport: ftp put %q on %s: %w", name, s.host, err)
	}
	if err := data.Close(); err != nil {
		return fmt.Errorf("transport: ftp put %q on %s: %w", name, s.host, err)
	}
	if err := s.readReply(2); err != nil {
		return fmt.Errorf("transport: ftp put %q on %s: %w", name, s.host, err)
	}
	s.log.Debug().Str("host", s.host).Str("file", name).Int64("bytes", written).Msg("ftp put")
	return nil
}

func (s *ftpSession) Close() error {
	_, _, _ = s.cmd(0, "QUIT")
	return s.control.Close()
}
