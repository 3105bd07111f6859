// Package discovery announces a docsync server over mDNS and finds one on
// the local network, so clients can start without a configured URL.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	Service = "_docsync._tcp"
	Domain  = "local."

	txtPathKey = "path="
)

var ErrNotFound = errors.New("no docsync server found")

// Announcer holds a registration until Shutdown.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers instance on port. The TXT record carries the API path.
func Announce(instance string, port int) (*Announcer, error) {
	if instance == "" {
		instance = "docsync"
	}
	server, err := zeroconf.Register(instance, Service, Domain, port, []string{txtPathKey + "/api"}, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return &Announcer{server: server}, nil
}

func (a *Announcer) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Lookup browses for up to timeout and returns the base URL of the first
// server that answers.
func Lookup(ctx context.Context, timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return "", fmt.Errorf("mdns browse: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ErrNotFound
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if url, ok := entryURL(entry); ok {
				return url, nil
			}
		}
	}
}

func entryURL(entry *zeroconf.ServiceEntry) (string, bool) {
	if entry == nil || entry.Port == 0 {
		return "", false
	}
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return "", false
	}
	return "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)) + apiPrefix(entry.Text), true
}

// apiPrefix returns the path in front of /api, if the TXT record moved it.
func apiPrefix(txt []string) string {
	for _, rec := range txt {
		if path, ok := strings.CutPrefix(rec, txtPathKey); ok {
			return strings.TrimSuffix(strings.TrimRight(path, "/"), "/api")
		}
	}
	return ""
}
