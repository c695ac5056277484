package types

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

type Retries struct {
	infinite bool
	value    uint64
}

// Return a new Retries type set to infinite
func NewRetries() Retries {
	return Retries{
		infinite: true,
		value:    0,
	}
}

func RetriesFromString(s string) (Retries, error) {
	r := NewRetries()
	if s == "infinite" {
		return r, nil
	}
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Retries{},
			errors.Errorf(
				"cannot create retries from string:"+
					" `%s` is neither a positive number nor the `infinite` key word",
				s,
			)
	}
	if val == 0 {
		return Retries{}, errors.New("retries value should be greater or equal than one")
	}
	r.Set(val)
	return r, nil
}

func (r *Retries) Set(val uint64) {
	r.infinite = false
	r.value = val
}

func (r *Retries) Sub() {
	if r.infinite {
		return
	}
	if r.value == 0 {
		panic("underflow error, Retries is already zero")
	}
	r.value--
}

func (r *Retries) IsZero() bool {
	return !r.infinite && r.value == 0
}

func (r *Retries) String() string {
	if r.infinite {
		return "infinite"
	}
	return strconv.FormatUint(r.value, 10)
}

func (r Retries) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Retries) UnmarshalText(text []byte) error {
	parsed, err := RetriesFromString(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Backoff yields the delay before each retry of a transient failure. The
// delay doubles on every attempt, starting at Initial and capped at Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	attempt uint
}

func NewBackoff(initial, max time.Duration) Backoff {
	return Backoff{Initial: initial, Max: max}
}

func (b *Backoff) Next() time.Duration {
	delay := b.Initial
	for i := uint(0); i < b.attempt && delay < b.Max; i++ {
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	b.attempt++
	return delay
}

func (b *Backoff) Reset() {
	b.attempt = 0
}
