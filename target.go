package streamgen

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoInterface is returned when no network interface matches configured name.
	ErrNoInterface = errors.New("no usable network interface")
	// ErrNoAddress is returned when host resolves to an empty address list.
	ErrNoAddress = errors.New("host has no addresses")
)

// Resolver looks up host addresses. *net.Resolver implements it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Target is a destination of a single stream.
type Target struct {
	Host string
	Port int
	// SourcePort is a local port the socket is bound to. Zero means ephemeral port.
	SourcePort int
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Resolve resolves Host once. IPv4 addresses are preferred.
func (t Target) Resolve(ctx context.Context, r Resolver) (*net.UDPAddr, error) {
	if ip := net.ParseIP(t.Host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: t.Port}, nil
	}

	if r == nil {
		r = net.DefaultResolver
	}

	addrs, err := r.LookupIPAddr(ctx, t.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", t.Host)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrapf(ErrNoAddress, "%q", t.Host)
	}

	addr := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			addr = a
			break
		}
	}

	return &net.UDPAddr{IP: addr.IP, Port: t.Port, Zone: addr.Zone}, nil
}

// Open opens UDP socket bound to SourcePort in the address family of dst.
func (t Target) Open(dst *net.UDPAddr) (*net.UDPConn, error) {
	network := "udp4"
	if dst.IP.To4() == nil {
		network = "udp6"
	}

	conn, err := net.ListenUDP(network, &net.UDPAddr{Port: t.SourcePort})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bind source port %d", t.SourcePort)
	}

	return conn, nil
}

// InterfaceLister returns host network interfaces. net.Interfaces implements it.
type InterfaceLister func() ([]net.Interface, error)

// FindInterface returns the first interface whose name contains substr.
func FindInterface(list InterfaceLister, substr string) (net.Interface, error) {
	if list == nil {
		list = net.Interfaces
	}

	ifaces, err := list()
	if err != nil {
		return net.Interface{}, errors.Wrap(err, "failed to list interfaces")
	}

	for _, i := range ifaces {
		if strings.Contains(i.Name, substr) {
			return i, nil
		}
	}

	return net.Interface{}, errors.Wrapf(ErrNoInterface, "name must contain %q", substr)
}
