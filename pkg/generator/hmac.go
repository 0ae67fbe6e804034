package generator

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/praxisid/oath-engine/pkg/domain"
)

// HMACProvider abstracts the keyed hash primitive so the engine is portable
// across crypto backends and testable with failing providers.
type HMACProvider interface {
	HMAC(algorithm domain.OathAlgorithm, key, message []byte) ([]byte, error)
}

// stdCrypto is the default provider backed by crypto/hmac.
type stdCrypto struct{}

func (stdCrypto) HMAC(algorithm domain.OathAlgorithm, key, message []byte) ([]byte, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case domain.AlgorithmSHA1:
		newHash = sha1.New
	case domain.AlgorithmSHA256:
		newHash = sha256.New
	case domain.AlgorithmSHA512:
		newHash = sha512.New
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAlgorithm, algorithm)
	}

	mac := hmac.New(newHash, key)
	mac.Write(message)
	return mac.Sum(nil), nil
}
