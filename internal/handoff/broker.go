package handoff

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds how long a minted credential stays redeemable.
const DefaultTTL = 2 * time.Minute

// Grant is a minted, not-yet-redeemed channel credential.
type Grant struct {
	Credential string
	Topic      string
	Source     string
	ExpiresAt  time.Time
}

// Broker mints and redeems single-use channel credentials. Redeeming is
// first-come-first-served: a credential is consumed by its first use and
// silently pruned after expiry.
type Broker struct {
	mu     sync.Mutex
	ttl    time.Duration
	grants map[string]Grant
	now    func() time.Time
}

// NewBroker creates a broker with the given credential lifetime.
// A non-positive ttl uses DefaultTTL.
func NewBroker(ttl time.Duration) *Broker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Broker{
		ttl:    ttl,
		grants: make(map[string]Grant),
		now:    time.Now,
	}
}

// Mint issues a credential bound to a topic (for example a chat room).
func (b *Broker) Mint(topic, source string) Grant {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked()

	g := Grant{
		Credential: uuid.NewString(),
		Topic:      topic,
		Source:     source,
		ExpiresAt:  b.now().Add(b.ttl),
	}
	b.grants[g.Credential] = g
	return g
}

// Redeem consumes a credential, returning its grant. Unknown, already
// redeemed and expired credentials all fail the same way so a caller
// can't probe which of the three happened.
func (b *Broker) Redeem(credential string) (Grant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked()

	g, ok := b.grants[credential]
	if !ok {
		return Grant{}, fmt.Errorf("credential is unknown, already used, or expired")
	}
	delete(b.grants, credential)
	return g, nil
}

func (b *Broker) pruneLocked() {
	now := b.now()
	for cred, g := range b.grants {
		if now.After(g.ExpiresAt) {
			delete(b.grants, cred)
		}
	}
}
