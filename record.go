package streamgen

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// EventPort is a destination port of impression and click streams.
	EventPort = 0x0DA2

	// RecordSize is a wire size of a single EventRecord.
	RecordSize = 8

	impressionBase = 1000
	clickOffset    = 1
	valueStep      = 2
)

// ErrUnknownKind is returned when kind string is neither impression nor click.
var ErrUnknownKind = errors.New("unknown event kind")

// Kind is a type of generated stream.
type Kind int

const (
	Impression Kind = iota
	Click
)

// ParseKind parses "impression" or "click".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "impression":
		return Impression, nil
	case "click":
		return Click, nil
	}

	return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
}

func (k Kind) String() string {
	switch k {
	case Impression:
		return "impression"
	case Click:
		return "click"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// EventRecord is a single (id, value) pair sent to the join consumer.
type EventRecord struct {
	ID    uint32
	Value uint32
}

// Sequence is an ordered list of records of one kind.
type Sequence struct {
	Kind    Kind
	Records []EventRecord
}

// Len returns number of records.
func (s Sequence) Len() int {
	return len(s.Records)
}

// EncodeRecord writes r into b as two big-endian uint32. b must be at least RecordSize long.
func EncodeRecord(b []byte, r EventRecord) {
	binary.BigEndian.PutUint32(b[0:4], r.ID)
	binary.BigEndian.PutUint32(b[4:8], r.Value)
}

// MarshalRecord returns wire representation of r.
func MarshalRecord(r EventRecord) []byte {
	b := make([]byte, RecordSize)
	EncodeRecord(b, r)

	return b
}

// DecodeRecord parses wire representation produced by EncodeRecord.
func DecodeRecord(b []byte) (EventRecord, error) {
	if len(b) != RecordSize {
		return EventRecord{}, errors.Errorf("invalid record size: %d, expected %d", len(b), RecordSize)
	}

	return EventRecord{
		ID:    binary.BigEndian.Uint32(b[0:4]),
		Value: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}
