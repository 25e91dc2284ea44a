// Package payload sends an opaque file as a single UDP datagram to the tuple filter.
package payload

import (
	"context"
	"io/ioutil"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// Port is a destination port of the filter stream.
	Port = 0x1F40

	// MaxSize is the largest UDP payload over IPv4.
	MaxSize = 65507

	// DefaultFile is read when no file is configured.
	DefaultFile = "test.json"
)

// ErrTooLarge is returned when payload doesn't fit into one datagram.
var ErrTooLarge = errors.New("payload exceeds datagram size")

// Load reads file once and checks it fits into a datagram.
func Load(path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read payload")
	}
	if len(data) > MaxSize {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes", len(data))
	}

	return data, nil
}

// Sender writes payload datagrams.
type Sender struct {
	conn  net.PacketConn
	delay time.Duration
	log   *zap.Logger
}

// NewSender returns Sender that waits delay after the send.
func NewSender(conn net.PacketConn, delay time.Duration, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}

	return &Sender{conn: conn, delay: delay, log: log}
}

// Send writes data to dst as is.
func (s *Sender) Send(ctx context.Context, data []byte, dst net.Addr) error {
	n, err := s.conn.WriteTo(data, dst)
	if err != nil {
		return errors.Wrap(err, "failed to send payload")
	}
	if n != len(data) {
		return errors.Errorf("short write: %d of %d bytes", n, len(data))
	}
	s.log.Info("payload sent", zap.Int("bytes", n), zap.Stringer("destination", dst))

	if s.delay <= 0 {
		return nil
	}

	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
