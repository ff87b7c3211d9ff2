package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultReferencePrefix = "VS"

// ReferenceGenerator produces human-legible order references. Uniqueness is likely but
// not guaranteed; the store rejects duplicates with ErrConflict.
type ReferenceGenerator interface {
	NewReference() string
}

type referenceGenerator struct {
	prefix string
	now    func() time.Time
}

func NewReferenceGenerator(prefix string) ReferenceGenerator {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return &referenceGenerator{prefix: prefix, now: time.Now}
}

// NewReference returns <PREFIX>-<base36 unix millis>-<8 random chars>.
func (g *referenceGenerator) NewReference() string {
	ts := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return g.prefix + "-" + ts + "-" + suffix
}
