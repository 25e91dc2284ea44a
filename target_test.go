package streamgen

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	args := m.Called(host)
	addrs, _ := args.Get(0).([]net.IPAddr)
	return addrs, args.Error(1)
}

func TestTarget_Resolve(t *testing.T) {
	t.Run("ip literal", func(t *testing.T) {
		r := &mockResolver{}
		addr, err := Target{Host: "127.0.0.1", Port: EventPort}.Resolve(context.Background(), r)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:3490", addr.String())
		r.AssertNotCalled(t, "LookupIPAddr", mock.Anything)
	})

	t.Run("prefers ipv4", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupIPAddr", "join.local").Return([]net.IPAddr{
			{IP: net.ParseIP("::1")},
			{IP: net.ParseIP("10.0.2.2")},
		}, nil)

		addr, err := Target{Host: "join.local", Port: EventPort}.Resolve(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, "10.0.2.2:3490", addr.String())
	})

	t.Run("lookup error", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupIPAddr", "nowhere").Return(nil, errors.New("no such host"))

		_, err := Target{Host: "nowhere", Port: EventPort}.Resolve(context.Background(), r)
		assert.EqualError(t, err, `failed to resolve "nowhere": no such host`)
	})

	t.Run("no addresses", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupIPAddr", "empty").Return([]net.IPAddr{}, nil)

		_, err := Target{Host: "empty", Port: EventPort}.Resolve(context.Background(), r)
		assert.True(t, errors.Is(err, ErrNoAddress))
	})
}

func TestTarget_Open(t *testing.T) {
	port := freeUDPPort(t)
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: EventPort}

	conn, err := Target{SourcePort: port}.Open(dst)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, port, conn.LocalAddr().(*net.UDPAddr).Port)

	_, err = Target{SourcePort: port}.Open(dst)
	assert.Error(t, err, "port is already bound")
}

func lister(names ...string) InterfaceLister {
	return func() ([]net.Interface, error) {
		ifaces := make([]net.Interface, len(names))
		for i, n := range names {
			ifaces[i] = net.Interface{Index: i + 1, Name: n}
		}
		return ifaces, nil
	}
}

func TestFindInterface(t *testing.T) {
	i, err := FindInterface(lister("lo", "h1-eth0", "eth0"), "eth0")
	require.NoError(t, err)
	assert.Equal(t, "h1-eth0", i.Name)

	_, err = FindInterface(lister("lo", "wlan0"), "eth0")
	assert.True(t, errors.Is(err, ErrNoInterface))

	_, err = FindInterface(func() ([]net.Interface, error) { return nil, errors.New("denied") }, "eth0")
	assert.Error(t, err)
}

// freeUDPPort returns a port that was free a moment ago.
func freeUDPPort(t *testing.T) int {
	c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer c.Close()

	return c.LocalAddr().(*net.UDPAddr).Port
}
