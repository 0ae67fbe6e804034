package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/praxisid/oath-engine/pkg/base32"
)

// OathType represents the OTP flavor of a credential.
type OathType string

const (
	// OathTypeTOTP represents a time-based credential (RFC 6238)
	OathTypeTOTP OathType = "totp"
	// OathTypeHOTP represents a counter-based credential (RFC 4226)
	OathTypeHOTP OathType = "hotp"
)

// ParseOathType parses an oath type string case-insensitively.
func ParseOathType(s string) (OathType, error) {
	switch strings.ToLower(s) {
	case "totp":
		return OathTypeTOTP, nil
	case "hotp":
		return OathTypeHOTP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOathType, s)
}

// OathAlgorithm selects the HMAC hash function for code generation.
type OathAlgorithm string

const (
	AlgorithmSHA1   OathAlgorithm = "SHA1"
	AlgorithmSHA256 OathAlgorithm = "SHA256"
	AlgorithmSHA512 OathAlgorithm = "SHA512"
)

// ParseAlgorithm parses an algorithm string case-insensitively.
func ParseAlgorithm(s string) (OathAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "SHA1":
		return AlgorithmSHA1, nil
	case "SHA256":
		return AlgorithmSHA256, nil
	case "SHA512":
		return AlgorithmSHA512, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, s)
}

// Validation limits for credential parameters.
const (
	MinDigits     = 4
	MaxDigits     = 8
	DefaultDigits = 6

	MinPeriod     = 1
	MaxPeriod     = 300
	DefaultPeriod = 30

	// MaxSecretKeyLength bounds the stored Base32 secret.
	MaxSecretKeyLength = 512
	// MaxParameterLength bounds issuer and account name.
	MaxParameterLength = 256
)

// OathCredential is the aggregate holding all OTP parameters for one
// registered account. The shared secret is deliberately unexported: it is
// excluded from JSON, from String, and from log output by construction, and
// must be re-attached with AttachSecret when the credential is reloaded from
// a store that keeps secrets separately.
type OathCredential struct {
	ID         string `json:"id"`
	UserID     string `json:"userId,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`

	Issuer             string `json:"issuer"`
	DisplayIssuer      string `json:"displayIssuer"`
	AccountName        string `json:"accountName"`
	DisplayAccountName string `json:"displayAccountName"`

	OathType  OathType      `json:"oathType"`
	Algorithm OathAlgorithm `json:"algorithm"`
	Digits    int           `json:"digits"`
	Period    int64         `json:"period,omitempty"`  // seconds, TOTP only
	Counter   int64         `json:"counter,omitempty"` // HOTP only, incremented on generation

	CreatedAt       time.Time `json:"createdAt"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	Policies        string    `json:"policies,omitempty"`

	LockingPolicy string `json:"lockingPolicy,omitempty"`
	IsLocked      bool   `json:"isLocked"`

	secretKey string
}

// CredentialParams holds the inputs for NewCredential. Zero-valued optional
// fields fall back to their documented defaults.
type CredentialParams struct {
	Type        OathType
	Issuer      string
	AccountName string
	SecretKey   string

	Algorithm OathAlgorithm // default SHA1
	Digits    int           // default 6
	Period    int64         // TOTP only, default 30
	Counter   int64         // HOTP only, default 0

	UserID          string
	ResourceID      string
	ImageURL        string
	BackgroundColor string
	Policies        string
}

// NewCredential builds a validated credential with a freshly generated id.
// The returned credential is internally consistent: callers never need to
// re-validate basic invariants, only state-dependent ones (lock status).
func NewCredential(p CredentialParams) (*OathCredential, error) {
	c := &OathCredential{
		ID:                 uuid.NewString(),
		UserID:             p.UserID,
		ResourceID:         p.ResourceID,
		Issuer:             p.Issuer,
		DisplayIssuer:      p.Issuer,
		AccountName:        p.AccountName,
		DisplayAccountName: p.AccountName,
		OathType:           p.Type,
		Algorithm:          p.Algorithm,
		Digits:             p.Digits,
		Period:             p.Period,
		Counter:            p.Counter,
		CreatedAt:          time.Now().UTC(),
		ImageURL:           p.ImageURL,
		BackgroundColor:    p.BackgroundColor,
		Policies:           p.Policies,
		secretKey:          p.SecretKey,
	}

	if c.Algorithm == "" {
		c.Algorithm = AlgorithmSHA1
	}
	if c.Digits == 0 {
		c.Digits = DefaultDigits
	}
	if c.OathType == OathTypeTOTP && c.Period == 0 {
		c.Period = DefaultPeriod
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the credential invariants. It is called at construction
// and again before code generation and persistence.
func (c *OathCredential) Validate() error {
	switch c.OathType {
	case OathTypeTOTP, OathTypeHOTP:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOathType, c.OathType)
	}
	switch c.Algorithm {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAlgorithm, c.Algorithm)
	}

	if c.Digits < MinDigits || c.Digits > MaxDigits {
		return fmt.Errorf("%w: digits must be between %d and %d, got %d",
			ErrInvalidParameterValue, MinDigits, MaxDigits, c.Digits)
	}
	if c.OathType == OathTypeTOTP && (c.Period < MinPeriod || c.Period > MaxPeriod) {
		return fmt.Errorf("%w: period must be between %d and %d seconds, got %d",
			ErrInvalidParameterValue, MinPeriod, MaxPeriod, c.Period)
	}
	if c.OathType == OathTypeHOTP && c.Counter < 0 {
		return fmt.Errorf("%w: counter must not be negative, got %d",
			ErrInvalidParameterValue, c.Counter)
	}

	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer must not be empty", ErrInvalidParameterValue)
	}
	if len(c.Issuer) > MaxParameterLength {
		return fmt.Errorf("%w: issuer exceeds %d characters", ErrInvalidParameterValue, MaxParameterLength)
	}
	if c.AccountName == "" {
		return fmt.Errorf("%w: account name must not be empty", ErrInvalidParameterValue)
	}
	if len(c.AccountName) > MaxParameterLength {
		return fmt.Errorf("%w: account name exceeds %d characters", ErrInvalidParameterValue, MaxParameterLength)
	}

	if c.secretKey == "" {
		return fmt.Errorf("%w: secret key is empty", ErrInvalidSecret)
	}
	if len(c.secretKey) > MaxSecretKeyLength {
		return fmt.Errorf("%w: secret key exceeds %d characters", ErrInvalidSecret, MaxSecretKeyLength)
	}
	if _, ok := base32.Decode(c.secretKey); !ok {
		return fmt.Errorf("%w: secret key is not valid base32", ErrInvalidSecret)
	}
	return nil
}

// Secret returns the Base32 shared secret.
func (c *OathCredential) Secret() string {
	return c.secretKey
}

// HasSecret reports whether a secret is currently attached.
func (c *OathCredential) HasSecret() bool {
	return c.secretKey != ""
}

// AttachSecret attaches the shared secret to a credential reloaded from
// non-secret storage.
func (c *OathCredential) AttachSecret(secret string) {
	c.secretKey = secret
}

// Lock marks the credential as locked by the named policy. Locking an
// already locked credential overwrites the recorded policy name.
func (c *OathCredential) Lock(policyName string) {
	c.IsLocked = true
	c.LockingPolicy = policyName
}

// Unlock clears the lock state and the recorded policy name.
func (c *OathCredential) Unlock() {
	c.IsLocked = false
	c.LockingPolicy = ""
}

// Clone returns a copy of the credential metadata without the secret
// attached. Stores hold the metadata clone and the secret separately.
func (c *OathCredential) Clone() *OathCredential {
	cp := *c
	cp.secretKey = ""
	return &cp
}

// String renders the credential without its secret.
func (c *OathCredential) String() string {
	return fmt.Sprintf("OathCredential(id=%s type=%s issuer=%s account=%s locked=%t)",
		c.ID, c.OathType, c.Issuer, c.AccountName, c.IsLocked)
}

// LogValue keeps the secret out of structured log output.
func (c *OathCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID),
		slog.String("type", string(c.OathType)),
		slog.String("issuer", c.Issuer),
		slog.String("account", c.AccountName),
		slog.Bool("locked", c.IsLocked),
	)
}
