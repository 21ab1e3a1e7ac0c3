package service

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultOrderIDPrefix = "OC"

// OrderIDGenerator builds order numbers of the form PREFIX-yyyymmddHHMMSS-xxxxxxxx.
// The timestamp keeps ids sortable for people; the suffix comes from the random
// tail of a UUIDv7 so two orders issued in the same second do not collide.
type OrderIDGenerator struct {
	prefix string
	now    func() time.Time
}

func NewOrderIDGenerator(prefix string, now func() time.Time) *OrderIDGenerator {
	if prefix == "" {
		prefix = DefaultOrderIDPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &OrderIDGenerator{prefix: prefix, now: now}
}

func (g *OrderIDGenerator) Next() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().UTC().Format("20060102150405"), hex.EncodeToString(u[12:16])), nil
}
