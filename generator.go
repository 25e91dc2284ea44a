package streamgen

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Request describes a single generator run.
type Request struct {
	Host       string
	SourcePort int
	Kind       Kind
}

// Generator builds a sequence and transmits it to the join consumer.
type Generator struct {
	cfg        Config
	log        *zap.Logger
	builder    *Builder
	clock      Clock
	interfaces InterfaceLister
	resolver   Resolver
	metrics    *Metrics
}

// Option configures Generator.
type Option func(*Generator)

// WithBuilder overrides random builder.
func WithBuilder(b *Builder) Option {
	return func(g *Generator) { g.builder = b }
}

// WithClock overrides pacing clock.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithInterfaces overrides interface lister.
func WithInterfaces(l InterfaceLister) Option {
	return func(g *Generator) { g.interfaces = l }
}

// WithResolver overrides host resolver.
func WithResolver(r Resolver) Option {
	return func(g *Generator) { g.resolver = r }
}

// WithMetrics makes generator report every send to m.
func WithMetrics(m *Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator returns new Generator. Config is validated here.
func NewGenerator(cfg Config, log *zap.Logger, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	g := &Generator{
		cfg:        cfg,
		log:        log,
		clock:      RealClock{},
		interfaces: net.Interfaces,
		resolver:   net.DefaultResolver,
	}
	for _, o := range opts {
		o(g)
	}

	if g.builder == nil {
		if cfg.Seed != 0 {
			g.builder = NewSeededBuilder(cfg.Seed)
		} else {
			g.builder = NewRandomBuilder()
		}
	}

	return g, nil
}

// Run generates sequence of req.Kind and sends it to req.Host.
//
// Nothing touches the network until the sequence is built, the interface is found
// and the host is resolved: any of those failures aborts the run with no traffic.
func (g *Generator) Run(ctx context.Context, req Request) (report Report, err error) {
	log := g.log.With(
		zap.String("run_id", uuid.New().String()),
		zap.Stringer("kind", req.Kind),
		zap.String("host", req.Host),
	)

	seq, err := g.builder.Sample(req.Kind, g.cfg.UniverseSize, g.cfg.Samples())
	if err != nil {
		return Report{}, errors.Wrap(err, "failed to build sequence")
	}

	iface, err := FindInterface(g.interfaces, g.cfg.Interface)
	if err != nil {
		return Report{}, err
	}

	target := Target{Host: req.Host, Port: g.cfg.DestinationPort, SourcePort: req.SourcePort}
	dst, err := target.Resolve(ctx, g.resolver)
	if err != nil {
		return Report{}, err
	}
	log.Info("sending",
		zap.String("interface", iface.Name),
		zap.Stringer("destination", dst),
		zap.Int("records", seq.Len()))

	conn, err := target.Open(dst)
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, "failed to close socket"))
		}
	}()

	// Validate has already checked the policy.
	policy, _ := g.cfg.Policy()
	tcfg := TransmitterConfig{
		Pacing: g.cfg.PacingDelay,
		Policy: policy,
		Clock:  g.clock,
	}
	if g.metrics != nil {
		tcfg.Observer = g.metrics
	}

	t := NewTransmitter(conn, tcfg, log)
	if g.metrics != nil {
		g.metrics.Track(t.Progress)
	}

	report, err = t.Transmit(ctx, seq, dst)
	log.Info("done",
		zap.Int("attempted", report.Attempted),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed))

	return report, err
}
