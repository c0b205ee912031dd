package app

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	referencePrefix     = "BK"
	referenceRandomLen  = 5
	referenceRandomSeed = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func newUUID() string {
	return uuid.NewString()
}

// uuidNoise covers the separators postgres tolerates inside a uuid literal.
var uuidNoise = strings.NewReplacer("-", "", "{", "", "}", "")

// canonicalEventID rewrites any spelling of a UUID to its lower-case hyphenated
// form, so every spelling of one event shares a lease name. Other ids are only
// trimmed.
func canonicalEventID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	if compact := uuidNoise.Replace(id); len(compact) == 32 {
		if u, err := uuid.Parse(compact); err == nil {
			return u.String()
		}
	}
	return id
}

// newReference builds a booking reference such as BK-M5XK2Q1A-7QZ3B from the
// millisecond timestamp in base36 and a short random suffix. Collisions are
// unlikely but possible; storage rejects them with ErrReferenceCollision.
func newReference(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	suffix := make([]byte, referenceRandomLen)
	for i := range suffix {
		suffix[i] = referenceRandomSeed[rand.IntN(len(referenceRandomSeed))]
	}
	return referencePrefix + "-" + ts + "-" + string(suffix)
}
