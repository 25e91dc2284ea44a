package streamgen

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(port int) Config {
	c := DefaultConfig()
	c.DestinationPort = port
	c.Interface = "lo"
	c.PacingDelay = time.Millisecond

	return c
}

func failingLister(t *testing.T) InterfaceLister {
	return func() ([]net.Interface, error) {
		t.Fatal("interfaces must not be listed")
		return nil, nil
	}
}

func TestGenerator_Run(t *testing.T) {
	recv, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer recv.Close()

	cfg := testConfig(recv.LocalAddr().(*net.UDPAddr).Port)
	cfg.UniverseSize = 3
	srcPort := freeUDPPort(t)

	m := NewMetrics(cfg.PacingDelay, 2)
	g, err := NewGenerator(cfg, zaptest.NewLogger(t),
		WithBuilder(NewSeededBuilder(1)),
		WithInterfaces(lister("lo")),
		WithMetrics(m),
	)
	require.NoError(t, err)

	report, err := g.Run(context.Background(), Request{Host: "127.0.0.1", SourcePort: srcPort, Kind: Impression})
	require.NoError(t, err)
	assert.Equal(t, Report{Attempted: 3, Sent: 3}, Report{Attempted: report.Attempted, Sent: report.Sent, Failed: report.Failed})

	require.NoError(t, recv.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 64)
	for i := 0; i < 3; i++ {
		n, from, err := recv.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, srcPort, from.Port)

		r, err := DecodeRecord(buf[:n])
		require.NoError(t, err)
		assert.Equal(t, EventRecord{ID: uint32(i), Value: uint32(1000 + 2*i)}, r)
	}

	sent, _ := m.window.Totals()
	assert.Equal(t, int64(3), sent)
}

func TestGenerator_InvalidUniverse(t *testing.T) {
	for _, n := range []int{0, -5} {
		cfg := testConfig(EventPort)
		cfg.UniverseSize = n

		r := &mockResolver{}
		g, err := NewGenerator(cfg, zaptest.NewLogger(t), WithInterfaces(failingLister(t)), WithResolver(r))
		require.NoError(t, err)

		report, err := g.Run(context.Background(), Request{Host: "join.local", Kind: Click})
		assert.True(t, errors.Is(err, ErrInvalidUniverseSize))
		assert.Equal(t, Report{}, report)
		r.AssertNotCalled(t, "LookupIPAddr", "join.local")
	}
}

func TestGenerator_NoInterface(t *testing.T) {
	r := &mockResolver{}
	g, err := NewGenerator(testConfig(EventPort), zaptest.NewLogger(t), WithInterfaces(lister("wlan0")), WithResolver(r))
	require.NoError(t, err)

	_, err = g.Run(context.Background(), Request{Host: "join.local", Kind: Impression})
	assert.True(t, errors.Is(err, ErrNoInterface))
	r.AssertNotCalled(t, "LookupIPAddr", "join.local")
}

func TestGenerator_ResolveFailure(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupIPAddr", "nowhere").Return(nil, errors.New("no such host"))

	g, err := NewGenerator(testConfig(EventPort), zaptest.NewLogger(t), WithInterfaces(lister("lo")), WithResolver(r))
	require.NoError(t, err)

	report, err := g.Run(context.Background(), Request{Host: "nowhere", Kind: Impression})
	assert.Error(t, err)
	assert.Equal(t, 0, report.Attempted)
	r.AssertExpectations(t)
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OnSendError = "retry"

	_, err := NewGenerator(cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
