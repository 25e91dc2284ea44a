package streamgen

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultPacing is a delay between two consecutive sends.
const DefaultPacing = 10 * time.Millisecond

// ErrUnknownPolicy is returned for unsupported send error policy names.
var ErrUnknownPolicy = errors.New("unknown send error policy")

// SendErrorPolicy defines what Transmitter does when a single send fails.
type SendErrorPolicy int

const (
	// ContinueOnError logs failed send and moves to the next record.
	ContinueOnError SendErrorPolicy = iota
	// AbortOnError stops transmission on the first failed send.
	AbortOnError
)

// ParseSendErrorPolicy parses "continue" or "abort". Empty string means continue.
func ParseSendErrorPolicy(s string) (SendErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return ContinueOnError, nil
	case "abort":
		return AbortOnError, nil
	}

	return 0, errors.Wrapf(ErrUnknownPolicy, "%q", s)
}

func (p SendErrorPolicy) String() string {
	if p == AbortOnError {
		return "abort"
	}

	return "continue"
}

// PacketWriter is a part of net.PacketConn used for sending.
type PacketWriter interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// Observer receives outcome of every send.
type Observer interface {
	ObserveSend(kind Kind, err error, took time.Duration)
}

// Report summarizes single Transmit call.
type Report struct {
	Attempted int
	Sent      int
	Failed    int
	Elapsed   time.Duration
}

// TransmitterConfig defines Transmitter behaviour. Zero Clock means RealClock.
type TransmitterConfig struct {
	Pacing   time.Duration
	Policy   SendErrorPolicy
	Clock    Clock
	Observer Observer
}

// Transmitter sends sequences record by record with fixed pacing.
type Transmitter struct {
	conn     PacketWriter
	pacing   time.Duration
	policy   SendErrorPolicy
	clock    Clock
	observer Observer
	log      *zap.Logger

	// totals across all Transmit calls, read concurrently by status handler.
	attempted atomic.Int64
	sent      atomic.Int64
	failed    atomic.Int64
}

// NewTransmitter returns new Transmitter writing into conn.
func NewTransmitter(conn PacketWriter, cfg TransmitterConfig, log *zap.Logger) *Transmitter {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Transmitter{
		conn:     conn,
		pacing:   cfg.Pacing,
		policy:   cfg.Policy,
		clock:    clock,
		observer: cfg.Observer,
		log:      log,
	}
}

// Transmit sends every record of seq to dst in sequence order.
//
// Failed sends are never retried. With ContinueOnError the loop goes on and the failure is only
// counted; with AbortOnError the partial report is returned together with the send error.
// Pacing delay is applied after every send regardless of its outcome.
func (t *Transmitter) Transmit(ctx context.Context, seq Sequence, dst net.Addr) (Report, error) {
	var (
		r     Report
		start = t.clock.Now()
		buf   = make([]byte, RecordSize)
	)

	done := func() Report {
		r.Elapsed = t.clock.Now().Sub(start)
		return r
	}

	for i, rec := range seq.Records {
		if err := ctx.Err(); err != nil {
			return done(), err
		}

		EncodeRecord(buf, rec)
		r.Attempted++
		t.attempted.Inc()

		sendStart := t.clock.Now()
		n, err := t.conn.WriteTo(buf, dst)
		if err == nil && n != RecordSize {
			err = errors.Errorf("short write: %d of %d bytes", n, RecordSize)
		}
		if t.observer != nil {
			t.observer.ObserveSend(seq.Kind, err, t.clock.Now().Sub(sendStart))
		}

		if err != nil {
			r.Failed++
			t.failed.Inc()
			t.log.Warn("failed to send record",
				zap.Int("position", i),
				zap.Uint32("id", rec.ID),
				zap.Uint32("value", rec.Value),
				zap.Error(err))

			if t.policy == AbortOnError {
				return done(), errors.Wrapf(err, "failed to send record %d", i)
			}
		} else {
			r.Sent++
			t.sent.Inc()
			t.log.Debug("record sent",
				zap.Uint32("id", rec.ID),
				zap.Uint32("value", rec.Value),
				zap.Int("count", r.Sent))
		}

		if err := t.clock.Sleep(ctx, t.pacing); err != nil {
			return done(), err
		}
	}

	return done(), nil
}

// Progress returns totals of all Transmit calls. Safe for concurrent use.
func (t *Transmitter) Progress() Report {
	return Report{
		Attempted: int(t.attempted.Load()),
		Sent:      int(t.sent.Load()),
		Failed:    int(t.failed.Load()),
	}
}
