// Package otpauth parses and formats otpauth:// and mfauth:// provisioning
// URIs, the format used to transfer an OTP credential between systems
// (typically inside a QR code).
//
// mfauth:// is a superset of otpauth:// carrying additional correlation and
// policy parameters (uid, oid, policies, b). Both schemes share the same
// body: {totp|hotp} host, /Issuer:Account label, and query parameters.
package otpauth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/praxisid/oath-engine/pkg/base32"
	"github.com/praxisid/oath-engine/pkg/domain"
)

// Supported URI schemes.
const (
	SchemeOTPAuth = "otpauth"
	SchemeMFAuth  = "mfauth"
)

// Parse decodes a provisioning URI into a fully validated credential. Any
// invariant violation is a parse failure; a partially valid credential is
// never returned.
func Parse(raw string) (*domain.OathCredential, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURI, err)
	}

	switch u.Scheme {
	case SchemeOTPAuth, SchemeMFAuth:
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURI, u.Scheme)
	}

	oathType, err := domain.ParseOathType(u.Host)
	if err != nil {
		return nil, err
	}

	pathIssuer, account, err := splitLabel(u.EscapedPath())
	if err != nil {
		return nil, err
	}

	q := u.Query()

	secret := strings.ToUpper(strings.TrimSpace(q.Get("secret")))
	if secret == "" {
		return nil, fmt.Errorf("%w: missing required secret parameter", domain.ErrInvalidURI)
	}
	if _, ok := base32.Decode(secret); !ok {
		return nil, fmt.Errorf("%w: secret is not valid base32", domain.ErrInvalidSecret)
	}

	// The query issuer wins over the path-derived one when both are present.
	issuer := pathIssuer
	if v := q.Get("issuer"); v != "" {
		issuer = v
	}

	algorithm := domain.AlgorithmSHA1
	if v := q.Get("algorithm"); v != "" {
		algorithm, err = domain.ParseAlgorithm(v)
		if err != nil {
			return nil, err
		}
	}

	digits := domain.DefaultDigits
	if v := q.Get("digits"); v != "" {
		digits, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: digits %q is not a number", domain.ErrInvalidParameterValue, v)
		}
		// An explicit zero must fail here: the constructor treats a zero
		// value as an absent parameter and would substitute the default.
		if digits == 0 {
			return nil, fmt.Errorf("%w: digits must be between %d and %d, got 0",
				domain.ErrInvalidParameterValue, domain.MinDigits, domain.MaxDigits)
		}
	}

	params := domain.CredentialParams{
		Type:        oathType,
		Issuer:      issuer,
		AccountName: account,
		SecretKey:   secret,
		Algorithm:   algorithm,
		Digits:      digits,
		ImageURL:    q.Get("image"),
	}

	switch oathType {
	case domain.OathTypeTOTP:
		params.Period = domain.DefaultPeriod
		if v := q.Get("period"); v != "" {
			params.Period, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: period %q is not a number", domain.ErrInvalidParameterValue, v)
			}
			// Same as digits: an explicit zero would otherwise be
			// indistinguishable from an absent parameter.
			if params.Period == 0 {
				return nil, fmt.Errorf("%w: period must be between %d and %d seconds, got 0",
					domain.ErrInvalidParameterValue, domain.MinPeriod, domain.MaxPeriod)
			}
		}
	case domain.OathTypeHOTP:
		if v := q.Get("counter"); v != "" {
			params.Counter, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: counter %q is not a number", domain.ErrInvalidParameterValue, v)
			}
		}
	}

	if u.Scheme == SchemeMFAuth {
		params.UserID = q.Get("uid")
		params.ResourceID = q.Get("oid")
		params.Policies = q.Get("policies")
		params.BackgroundColor = q.Get("b")
	}

	return domain.NewCredential(params)
}

// Format renders a credential as a canonical provisioning URI. Issuer,
// algorithm, digits, and the type-specific timing parameter are always
// emitted explicitly to avoid ambiguity on re-parse. The mfauth scheme is
// used when the credential carries any mfauth-only field, so no field is
// silently dropped.
func Format(c *domain.OathCredential) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	scheme := SchemeOTPAuth
	if c.UserID != "" || c.ResourceID != "" || c.Policies != "" || c.BackgroundColor != "" {
		scheme = SchemeMFAuth
	}

	q := url.Values{}
	q.Set("secret", c.Secret())
	q.Set("issuer", c.Issuer)
	q.Set("algorithm", string(c.Algorithm))
	q.Set("digits", strconv.Itoa(c.Digits))
	switch c.OathType {
	case domain.OathTypeTOTP:
		q.Set("period", strconv.FormatInt(c.Period, 10))
	case domain.OathTypeHOTP:
		q.Set("counter", strconv.FormatInt(c.Counter, 10))
	}
	if c.ImageURL != "" {
		q.Set("image", c.ImageURL)
	}
	if scheme == SchemeMFAuth {
		if c.UserID != "" {
			q.Set("uid", c.UserID)
		}
		if c.ResourceID != "" {
			q.Set("oid", c.ResourceID)
		}
		if c.Policies != "" {
			q.Set("policies", c.Policies)
		}
		if c.BackgroundColor != "" {
			q.Set("b", c.BackgroundColor)
		}
	}

	label := escapeLabelPart(c.Issuer) + ":" + escapeLabelPart(c.AccountName)
	return scheme + "://" + string(c.OathType) + "/" + label + "?" + q.Encode(), nil
}

// splitLabel splits the escaped URI path into issuer and account. The colon
// separating them must be unescaped; colons inside either part arrive as
// %3A and survive the split.
func splitLabel(escapedPath string) (issuer, account string, err error) {
	label := strings.TrimPrefix(escapedPath, "/")
	issuerEsc := ""
	accountEsc := label
	if i := strings.Index(label, ":"); i >= 0 {
		issuerEsc = label[:i]
		accountEsc = label[i+1:]
	}

	if issuerEsc != "" {
		issuer, err = url.PathUnescape(issuerEsc)
		if err != nil {
			return "", "", fmt.Errorf("%w: malformed issuer in path: %v", domain.ErrInvalidURI, err)
		}
	}
	account, err = url.PathUnescape(accountEsc)
	if err != nil {
		return "", "", fmt.Errorf("%w: malformed account in path: %v", domain.ErrInvalidURI, err)
	}
	return issuer, account, nil
}

// escapeLabelPart percent-encodes one label component. The colon is escaped
// by hand since it is the issuer/account separator but a legal path
// character that url.PathEscape leaves alone.
func escapeLabelPart(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}
