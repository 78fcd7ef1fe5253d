// Package idgenerator contains the default [domain.IDGenerator] implementation,
// producing object id shaped identifiers: 24 hexadecimal characters holding a
// timestamp, a per-generator random value and a counter.
package idgenerator

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync/atomic"

	"github.com/vinicius-lino-figueiredo/godm/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader     io.Reader
	timeGetter domain.TimeGetter
	counter    atomic.Uint32
}

// NewIDGenerator implements [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := IDGenerator{
		reader:     rand.Reader,
		timeGetter: timegetter.NewSystem(),
	}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (string, error) {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(i.timeGetter.GetTime().Unix()))

	var rnd [8]byte
	if _, err := io.ReadFull(i.reader, rnd[:]); err != nil {
		return "", err
	}
	copy(buf[4:9], rnd[:5])

	// the counter starts at a random point so two generators seeded with
	// the same second are unlikely to clash
	c := i.counter.Add(1) + binary.BigEndian.Uint32(rnd[4:8])
	buf[9] = byte(c >> 16)
	buf[10] = byte(c >> 8)
	buf[11] = byte(c)

	return hex.EncodeToString(buf[:]), nil
}
