package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"

	"plcdb/transport"
)

const (
	// ServiceFTP is the mDNS service advertised by Windows CE controllers.
	ServiceFTP = "_ftp._tcp"
	// ServiceSFTP is the mDNS service advertised by TwinCAT/BSD controllers.
	ServiceSFTP = "_sftp-ssh._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultScanTimeout bounds each discovery scan.
	DefaultScanTimeout = 3 * time.Second
)

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Endpoint is one controller file service found on the local network.
type Endpoint struct {
	// Host is the bare hostname without the mDNS domain suffix.
	Host     string
	Instance string
	Addr     string
	Port     int
	// Protocol is the transport protocol implied by the service type.
	Protocol string
}

// Config controls mDNS scanning.
type Config struct {
	// Services are the browsed service types. Empty browses both controller
	// file services.
	Services    []string
	Domain      string
	ScanTimeout time.Duration
	Logger      zerolog.Logger

	// browseFn replaces mDNS resolution in tests.
	browseFn browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if len(out.Services) == 0 {
		out.Services = []string{ServiceFTP, ServiceSFTP}
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.ScanTimeout <= 0 {
		out.ScanTimeout = DefaultScanTimeout
	}
	return out
}

// Scan browses the configured services once and returns every distinct
// controller endpoint seen before the scan window closes. A host advertising
// both services yields one endpoint per protocol.
func Scan(ctx context.Context, config Config) ([]Endpoint, error) {
	cfg := config.withDefaults()

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, fmt.Errorf("discovery: create resolver: %w", err)
		}
		browse = resolver.Browse
	}

	scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout)
	defer cancel()

	var (
		mu        sync.Mutex
		endpoints = make(map[string]Endpoint)
		browseErr error
		wg        sync.WaitGroup
	)

	for _, service := range cfg.Services {
		protocol := protocolForService(service)
		entries := make(chan *zeroconf.ServiceEntry, 32)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-scanCtx.Done():
					return
				case entry := <-entries:
					if entry == nil {
						continue
					}
					endpoint, ok := parseEntry(entry, protocol)
					if !ok {
						continue
					}
					mu.Lock()
					endpoints[endpoint.Host+"/"+endpoint.Protocol] = endpoint
					mu.Unlock()
				}
			}
		}()
		go func() {
			defer wg.Done()
			err := browse(scanCtx, service, cfg.Domain, entries)
			// A timeout just means this scan window ended naturally.
			if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			cfg.Logger.Warn().Str("service", service).Err(err).Msg("mdns browse failed")
			mu.Lock()
			if browseErr == nil {
				browseErr = fmt.Errorf("discovery: browse %s: %w", service, err)
			}
			mu.Unlock()
		}()
	}

	<-scanCtx.Done()
	wg.Wait()

	if len(endpoints) == 0 && browseErr != nil {
		return nil, browseErr
	}

	out := make([]Endpoint, 0, len(endpoints))
	for _, endpoint := range endpoints {
		out = append(out, endpoint)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Host == out[j].Host {
			return out[i].Protocol < out[j].Protocol
		}
		return out[i].Host < out[j].Host
	})
	return out, nil
}

func protocolForService(service string) string {
	if strings.HasPrefix(service, ServiceSFTP) {
		return transport.ProtocolSSH
	}
	return transport.ProtocolFTP
}

func parseEntry(entry *zeroconf.ServiceEntry, protocol string) (Endpoint, bool) {
	host := strings.TrimSuffix(strings.TrimSpace(entry.HostName), ".")
	host = strings.TrimSuffix(host, ".local")
	if host == "" {
		host = strings.TrimSpace(entry.Instance)
	}
	if host == "" {
		return Endpoint{}, false
	}

	addr := ""
	switch {
	case len(entry.AddrIPv4) > 0 && entry.AddrIPv4[0] != nil:
		addr = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0 && entry.AddrIPv6[0] != nil:
		addr = entry.AddrIPv6[0].String()
	}

	return Endpoint{
		Host:     host,
		Instance: strings.TrimSpace(entry.Instance),
		Addr:     addr,
		Port:     entry.Port,
		Protocol: protocol,
	}, true
}
