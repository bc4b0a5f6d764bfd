package transport

import (
	"net"
	"strconv"
)

// Probe reports whether host accepts TCP connections on the configured
// protocol port. It does not authenticate and opens no session.
func Probe(host string, opts Options) bool {
	opts = opts.withDefaults()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(opts.Port)), opts.DialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
