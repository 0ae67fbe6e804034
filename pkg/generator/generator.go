// Package generator produces HOTP (RFC 4226) and TOTP (RFC 6238) codes for
// a validated credential, together with timing metadata for time-based
// codes.
package generator

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/praxisid/oath-engine/pkg/base32"
	"github.com/praxisid/oath-engine/pkg/domain"
)

// Code is the result of one generation.
type Code struct {
	// Value is the numeric code, zero-padded to the credential's digit count.
	Value string
	// Type mirrors the credential's oath type.
	Type domain.OathType
	// GeneratedAt is the clock reading the code was computed against.
	GeneratedAt time.Time
	// TimeRemaining is the time until the code changes. TOTP only.
	TimeRemaining time.Duration
	// Progress is the elapsed fraction of the current window, in [0,1). TOTP only.
	Progress float64
}

// Generator computes OTP codes. The crypto primitive and the clock are
// injected so tests can supply deterministic values; New wires stdlib
// defaults.
type Generator struct {
	crypto HMACProvider
	now    func() time.Time
}

// New returns a generator backed by the standard library crypto and the
// system clock.
func New() *Generator {
	return NewWithOptions(nil, nil)
}

// NewWithOptions returns a generator with an explicit crypto provider and
// clock. Nil arguments fall back to the defaults.
func NewWithOptions(crypto HMACProvider, now func() time.Time) *Generator {
	if crypto == nil {
		crypto = stdCrypto{}
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{crypto: crypto, now: now}
}

// Generate computes the current code for the credential.
//
// Generation is refused with ErrCredentialLocked while the credential is
// locked; the counter is not touched in that case. For an HOTP credential a
// successful generation increments the counter by exactly one, and the
// caller must persist the credential before treating the code as valid for
// verification elsewhere: a crash after generate but before persist leaves
// the counter desynchronized from the verifier.
func (g *Generator) Generate(c *domain.OathCredential) (*Code, error) {
	if c.IsLocked {
		return nil, fmt.Errorf("%w: %s", domain.ErrCredentialLocked, c.ID)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCodeGenerationFailed, err)
	}

	// Validate already confirmed the secret decodes.
	key, ok := base32.Decode(c.Secret())
	if !ok {
		return nil, fmt.Errorf("%w: secret is not valid base32", domain.ErrInvalidSecret)
	}

	now := g.now()
	switch c.OathType {
	case domain.OathTypeHOTP:
		value, err := g.hotp(c, key, uint64(c.Counter))
		if err != nil {
			return nil, err
		}
		c.Counter++
		return &Code{Value: value, Type: domain.OathTypeHOTP, GeneratedAt: now}, nil

	case domain.OathTypeTOTP:
		step := uint64(now.Unix() / c.Period)
		value, err := g.hotp(c, key, step)
		if err != nil {
			return nil, err
		}
		remaining := c.Period - now.Unix()%c.Period
		return &Code{
			Value:         value,
			Type:          domain.OathTypeTOTP,
			GeneratedAt:   now,
			TimeRemaining: time.Duration(remaining) * time.Second,
			Progress:      1 - float64(remaining)/float64(c.Period),
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOathType, c.OathType)
}

// hotp runs the RFC 4226 HMAC and dynamic truncation for one counter value.
func (g *Generator) hotp(c *domain.OathCredential, key []byte, counter uint64) (string, error) {
	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, counter)

	sum, err := g.crypto.HMAC(c.Algorithm, key, msg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCodeGenerationFailed, err)
	}
	if len(sum) < 20 {
		return "", fmt.Errorf("%w: digest too short (%d bytes)", domain.ErrCodeGenerationFailed, len(sum))
	}

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", c.Digits, value%pow10(c.Digits)), nil
}

func pow10(n int) uint32 {
	p := uint32(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
