// Package discovery resolves the configured DNS seed into a list of
// candidate peer addresses, mirroring the original node's
// get_active_nodes_from_dns_seed but expressed with net.Resolver and
// a caller-supplied context deadline instead of blocking indefinitely.
package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/taller-go/btcspv/errs"
)

// ResolveSeeds looks up host and returns every IPv4 address it
// resolved to, on port. IPv6 results are discarded, so the rest of
// this node never dials v6 peers.
func ResolveSeeds(ctx context.Context, host string, port uint16) ([]net.TCPAddr, error) {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, errs.New(errs.KindDNSResolution, fmt.Errorf("discovery: resolving %s: %w", host, err))
	}

	var addrs []net.TCPAddr
	for _, ip := range ips {
		v4 := ip.IP.To4()
		if v4 == nil {
			continue
		}
		addrs = append(addrs, net.TCPAddr{IP: v4, Port: int(port)})
	}

	if len(addrs) == 0 {
		return nil, errs.New(errs.KindDNSResolution, fmt.Errorf("discovery: %s returned no IPv4 candidates", host))
	}
	return addrs, nil
}
