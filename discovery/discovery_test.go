package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeResolver support isn't wired in (net.DefaultResolver isn't an
// interface), so this test exercises the real resolver against
// localhost, which every environment can resolve without a network
// round trip.
func TestResolveSeedsLocalhost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	addrs, err := ResolveSeeds(ctx, "localhost", 18333)
	require.NoError(t, err)
	require.NotEmpty(t, addrs)
	for _, a := range addrs {
		require.NotNil(t, a.IP.To4())
		require.Equal(t, 18333, a.Port)
	}
}

func TestResolveSeedsBadHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := ResolveSeeds(ctx, "this-host-does-not-exist.invalid", 18333)
	require.Error(t, err)
}
