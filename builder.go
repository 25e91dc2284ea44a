package streamgen

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// DefaultUniverseSize is a number of ad ids used by the join test harness.
const DefaultUniverseSize = 100

// MaxUniverseSize keeps the largest click value inside uint32.
const MaxUniverseSize = (math.MaxUint32-impressionBase-clickOffset)/valueStep + 1

var (
	ErrInvalidUniverseSize = errors.New("invalid universe size")
	ErrInvalidSampleSize   = errors.New("invalid sample size")
)

// Builder generates impression and click sequences.
type Builder struct {
	rng *rand.Rand
}

// NewBuilder returns new Builder that draws from rng.
func NewBuilder(rng *rand.Rand) *Builder {
	return &Builder{rng: rng}
}

// NewSeededBuilder returns Builder with deterministic source.
func NewSeededBuilder(seed int64) *Builder {
	return NewBuilder(rand.New(rand.NewSource(seed)))
}

// NewRandomBuilder returns Builder seeded with current time.
func NewRandomBuilder() *Builder {
	return NewSeededBuilder(time.Now().UnixNano())
}

// Build returns sequence that covers the whole universe.
func (b *Builder) Build(kind Kind, universeSize int) (Sequence, error) {
	return b.Sample(kind, universeSize, universeSize)
}

// Sample draws sampleSize ids out of 0..universeSize-1 without replacement and pairs them with values.
//
// Impression ids are sorted and paired with 1000, 1002, ... so that display order follows id order.
// Click values are impression values + 1 and the pairs are shuffled, because clicks may reach
// the consumer in any order.
func (b *Builder) Sample(kind Kind, universeSize, sampleSize int) (Sequence, error) {
	if universeSize <= 0 || universeSize > MaxUniverseSize {
		return Sequence{}, errors.Wrapf(ErrInvalidUniverseSize, "%d", universeSize)
	}
	if sampleSize <= 0 || sampleSize > universeSize {
		return Sequence{}, errors.Wrapf(ErrInvalidSampleSize, "%d of %d", sampleSize, universeSize)
	}

	var base uint32
	switch kind {
	case Impression:
		base = impressionBase
	case Click:
		base = impressionBase + clickOffset
	default:
		return Sequence{}, errors.Wrapf(ErrUnknownKind, "%v", kind)
	}

	ids := b.rng.Perm(universeSize)[:sampleSize]
	sort.Ints(ids)

	records := make([]EventRecord, sampleSize)
	for i, id := range ids {
		records[i] = EventRecord{
			ID:    uint32(id),
			Value: base + uint32(i)*valueStep,
		}
	}

	if kind == Click {
		b.rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
	}

	return Sequence{Kind: kind, Records: records}, nil
}
