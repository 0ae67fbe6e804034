package policy

import (
	"testing"

	"github.com/praxisid/oath-engine/pkg/domain"
)

func newCredential(t *testing.T) *domain.OathCredential {
	t.Helper()
	c, err := domain.NewCredential(domain.CredentialParams{
		Type:        domain.OathTypeTOTP,
		Issuer:      "Example",
		AccountName: "alice@example.com",
		SecretKey:   "JBSWY3DPEHPK3PXP",
	})
	if err != nil {
		t.Fatalf("NewCredential() error = %v", err)
	}
	return c
}

func TestApplyLocksOnViolation(t *testing.T) {
	c := newCredential(t)

	locked := Apply(c, EvaluatorFunc(func(*domain.OathCredential) (string, bool) {
		return "jailbreak", false
	}))
	if !locked {
		t.Error("Apply() = false, want true")
	}
	if !c.IsLocked || c.LockingPolicy != "jailbreak" {
		t.Errorf("IsLocked=%t LockingPolicy=%q, want locked by jailbreak", c.IsLocked, c.LockingPolicy)
	}
}

func TestApplyOverwritesPolicyName(t *testing.T) {
	c := newCredential(t)
	c.Lock("jailbreak")

	Apply(c, EvaluatorFunc(func(*domain.OathCredential) (string, bool) {
		return "deviceCompliance", false
	}))
	if c.LockingPolicy != "deviceCompliance" {
		t.Errorf("LockingPolicy = %q, want deviceCompliance", c.LockingPolicy)
	}
}

func TestApplyUnlocksOnCompliance(t *testing.T) {
	c := newCredential(t)
	c.Lock("jailbreak")

	locked := Apply(c, EvaluatorFunc(func(*domain.OathCredential) (string, bool) {
		return "", true
	}))
	if locked {
		t.Error("Apply() = true, want false")
	}
	if c.IsLocked || c.LockingPolicy != "" {
		t.Errorf("IsLocked=%t LockingPolicy=%q, want unlocked", c.IsLocked, c.LockingPolicy)
	}
}
