package oath

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/praxisid/oath-engine/pkg/domain"
	"github.com/praxisid/oath-engine/pkg/generator"
	"github.com/praxisid/oath-engine/pkg/policy"
)

const testSecret = "JBSWY3DPEHPK3PXP"

func TestRegisterAndGenerate(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{
		Generator: generator.NewWithOptions(nil, func() time.Time { return time.Unix(59, 0) }),
	})

	cred, err := engine.Register(ctx, "otpauth://totp/Example:alice@example.com?secret="+testSecret)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	code, err := engine.GenerateCode(ctx, cred.ID)
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}
	if len(code.Value) != 6 {
		t.Errorf("code %q, want 6 digits", code.Value)
	}
	if code.TimeRemaining != 1*time.Second {
		t.Errorf("TimeRemaining = %v, want 1s", code.TimeRemaining)
	}
}

func TestRegisterRejectsMalformedURI(t *testing.T) {
	engine := New(Config{})
	if _, err := engine.Register(context.Background(), "otpauth://totp/Example:alice"); !errors.Is(err, domain.ErrInvalidURI) {
		t.Errorf("Register() error = %v, want %v", err, domain.ErrInvalidURI)
	}
}

func TestHOTPCounterPersisted(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{})

	cred, err := engine.Add(ctx, domain.CredentialParams{
		Type:        domain.OathTypeHOTP,
		Issuer:      "Example",
		AccountName: "alice@example.com",
		SecretKey:   testSecret,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.GenerateCode(ctx, cred.ID); err != nil {
			t.Fatalf("GenerateCode() #%d error = %v", i, err)
		}
	}

	stored, err := engine.store.Retrieve(ctx, cred.ID)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if stored.Counter != 2 {
		t.Errorf("stored Counter = %d, want 2", stored.Counter)
	}
}

func TestLockGate(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{})

	cred, err := engine.Add(ctx, domain.CredentialParams{
		Type:        domain.OathTypeHOTP,
		Issuer:      "Example",
		AccountName: "alice@example.com",
		SecretKey:   testSecret,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := engine.Lock(ctx, cred.ID, "jailbreak"); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if _, err := engine.GenerateCode(ctx, cred.ID); !errors.Is(err, domain.ErrCredentialLocked) {
		t.Fatalf("GenerateCode() error = %v, want %v", err, domain.ErrCredentialLocked)
	}

	stored, err := engine.store.Retrieve(ctx, cred.ID)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if stored.Counter != 0 {
		t.Errorf("stored Counter = %d, want 0 after refused generation", stored.Counter)
	}

	if err := engine.Unlock(ctx, cred.ID); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if _, err := engine.GenerateCode(ctx, cred.ID); err != nil {
		t.Errorf("GenerateCode() after Unlock error = %v", err)
	}
}

func TestPolicyEvaluatorDrivesLockState(t *testing.T) {
	ctx := context.Background()
	compliant := true
	engine := New(Config{
		Policies: policy.EvaluatorFunc(func(*domain.OathCredential) (string, bool) {
			return "deviceCompliance", compliant
		}),
	})

	cred, err := engine.Register(ctx, "otpauth://totp/Example:alice@example.com?secret="+testSecret)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := engine.GenerateCode(ctx, cred.ID); err != nil {
		t.Fatalf("GenerateCode() while compliant error = %v", err)
	}

	compliant = false
	if _, err := engine.GenerateCode(ctx, cred.ID); !errors.Is(err, domain.ErrCredentialLocked) {
		t.Fatalf("GenerateCode() error = %v, want %v", err, domain.ErrCredentialLocked)
	}

	// The lock state change is persisted.
	stored, err := engine.store.Retrieve(ctx, cred.ID)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !stored.IsLocked || stored.LockingPolicy != "deviceCompliance" {
		t.Errorf("stored IsLocked=%t LockingPolicy=%q, want locked by deviceCompliance",
			stored.IsLocked, stored.LockingPolicy)
	}

	// Policy recovery unlocks on the next attempt.
	compliant = true
	if _, err := engine.GenerateCode(ctx, cred.ID); err != nil {
		t.Errorf("GenerateCode() after recovery error = %v", err)
	}
}

func TestExportURI(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{})

	cred, err := engine.Register(ctx, "otpauth://totp/Example:alice@example.com?secret="+testSecret)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	uri, err := engine.ExportURI(ctx, cred.ID)
	if err != nil {
		t.Fatalf("ExportURI() error = %v", err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/Example:alice@example.com?") {
		t.Errorf("ExportURI() = %q", uri)
	}
	if !strings.Contains(uri, "secret="+testSecret) {
		t.Errorf("ExportURI() = %q, missing secret parameter", uri)
	}
}

func TestQRCodeDataURI(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{})

	cred, err := engine.Register(ctx, "otpauth://totp/Example:alice@example.com?secret="+testSecret)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	dataURI, err := engine.QRCodeDataURI(ctx, cred.ID, 200, 200)
	if err != nil {
		t.Fatalf("QRCodeDataURI() error = %v", err)
	}
	if !strings.HasPrefix(dataURI, "data:image/png;base64,") {
		t.Errorf("QRCodeDataURI() = %.40q...", dataURI)
	}
}

func TestListAndRemove(t *testing.T) {
	ctx := context.Background()
	engine := New(Config{})

	cred, err := engine.Register(ctx, "otpauth://totp/Example:alice@example.com?secret="+testSecret)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	all, err := engine.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != cred.ID {
		t.Errorf("List() = %v, want one credential %s", all, cred.ID)
	}

	if err := engine.Remove(ctx, cred.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := engine.GenerateCode(ctx, cred.ID); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("GenerateCode() after Remove error = %v, want %v", err, domain.ErrCredentialNotFound)
	}
}
