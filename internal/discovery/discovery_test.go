package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestEntryURL(t *testing.T) {
	tests := []struct {
		name  string
		entry *zeroconf.ServiceEntry
		want  string
		ok    bool
	}{
		{"nil", nil, "", false},
		{"no address", &zeroconf.ServiceEntry{Port: 8080}, "", false},
		{
			"ipv4",
			&zeroconf.ServiceEntry{Port: 8080, AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")}, Text: []string{"path=/api"}},
			"http://192.168.1.20:8080", true,
		},
		{
			"ipv6 with prefix",
			&zeroconf.ServiceEntry{Port: 9000, AddrIPv6: []net.IP{net.ParseIP("fe80::1")}, Text: []string{"path=/docsync/api"}},
			"http://[fe80::1]:9000/docsync", true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := entryURL(tc.entry)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}
