// Package oath ties the OTP engine together: credential registration from
// provisioning URIs, code generation behind the policy lock gate, and
// export back to URI or QR form, on top of a pluggable credential store.
//
// Basic usage:
//
//	engine := oath.New(oath.Config{})
//
//	cred, err := engine.Register(ctx,
//	    "otpauth://totp/Example:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Example")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	code, err := engine.GenerateCode(ctx, cred.ID)
//	fmt.Println(code.Value, code.TimeRemaining)
//
// With an external store and a policy evaluator:
//
//	engine := oath.New(oath.Config{
//	    Store:    myKeychainStore,
//	    Policies: deviceCompliance,
//	    Logger:   slog.Default(),
//	})
package oath

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/praxisid/oath-engine/pkg/domain"
	"github.com/praxisid/oath-engine/pkg/generator"
	"github.com/praxisid/oath-engine/pkg/otpauth"
	"github.com/praxisid/oath-engine/pkg/policy"
	"github.com/praxisid/oath-engine/pkg/storage"
)

// Config holds the engine's collaborators. All fields are optional.
type Config struct {
	// Store persists credentials. Defaults to an in-memory store.
	Store storage.CredentialStore
	// Generator computes codes. Defaults to stdlib crypto and the system clock.
	Generator *generator.Generator
	// Policies, when set, is re-evaluated before every generation and its
	// verdict drives the credential's lock state.
	Policies policy.Evaluator
	// Logger receives structured events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Engine is the high-level entry point for the OTP engine.
type Engine struct {
	store    storage.CredentialStore
	gen      *generator.Generator
	policies policy.Evaluator
	logger   *slog.Logger
}

// New creates an engine, filling in defaults for absent collaborators.
func New(cfg Config) *Engine {
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	if cfg.Generator == nil {
		cfg.Generator = generator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		store:    cfg.Store,
		gen:      cfg.Generator,
		policies: cfg.Policies,
		logger:   cfg.Logger,
	}
}

// Register parses a provisioning URI and stores the resulting credential.
func (e *Engine) Register(ctx context.Context, rawURI string) (*domain.OathCredential, error) {
	cred, err := otpauth.Parse(rawURI)
	if err != nil {
		return nil, err
	}
	if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	e.logger.Info("credential registered", "credential", cred)
	return cred, nil
}

// Add constructs a credential from explicit parameters and stores it.
func (e *Engine) Add(ctx context.Context, params domain.CredentialParams) (*domain.OathCredential, error) {
	cred, err := domain.NewCredential(params)
	if err != nil {
		return nil, err
	}
	if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	e.logger.Info("credential added", "credential", cred)
	return cred, nil
}

// GenerateCode produces the current code for a stored credential. The
// policy evaluator, when configured, is consulted first and any lock-state
// change is persisted. For HOTP credentials the incremented counter is
// persisted before the code is returned, so a handed-out code always has a
// durable counter behind it.
func (e *Engine) GenerateCode(ctx context.Context, id string) (*generator.Code, error) {
	cred, err := e.store.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.policies != nil {
		wasLocked, policyName := cred.IsLocked, cred.LockingPolicy
		locked := policy.Apply(cred, e.policies)
		if locked != wasLocked || cred.LockingPolicy != policyName {
			if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
				return nil, fmt.Errorf("failed to persist lock state: %w", err)
			}
			e.logger.Info("credential lock state changed", "credential", cred)
		}
	}

	code, err := e.gen.Generate(cred)
	if err != nil {
		return nil, err
	}

	if cred.OathType == domain.OathTypeHOTP {
		if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
			return nil, fmt.Errorf("failed to persist counter: %w", err)
		}
	}
	return code, nil
}

// ExportURI renders a stored credential as a provisioning URI.
func (e *Engine) ExportURI(ctx context.Context, id string) (string, error) {
	cred, err := e.store.Retrieve(ctx, id)
	if err != nil {
		return "", err
	}
	return otpauth.Format(cred)
}

// QRCodeDataURI renders a stored credential's provisioning URI as a PNG QR
// code data URI.
func (e *Engine) QRCodeDataURI(ctx context.Context, id string, width, height int) (string, error) {
	cred, err := e.store.Retrieve(ctx, id)
	if err != nil {
		return "", err
	}
	return otpauth.QRCodeDataURI(cred, width, height)
}

// Lock marks a stored credential as locked by the named policy.
func (e *Engine) Lock(ctx context.Context, id, policyName string) error {
	cred, err := e.store.Retrieve(ctx, id)
	if err != nil {
		return err
	}
	cred.Lock(policyName)
	if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
		return fmt.Errorf("failed to persist lock state: %w", err)
	}
	e.logger.Info("credential locked", "credential", cred, "policy", policyName)
	return nil
}

// Unlock clears a stored credential's lock state.
func (e *Engine) Unlock(ctx context.Context, id string) error {
	cred, err := e.store.Retrieve(ctx, id)
	if err != nil {
		return err
	}
	cred.Unlock()
	if err := e.store.Store(ctx, cred, cred.Secret()); err != nil {
		return fmt.Errorf("failed to persist lock state: %w", err)
	}
	e.logger.Info("credential unlocked", "credential", cred)
	return nil
}

// List returns all stored credential metadata, without secrets.
func (e *Engine) List(ctx context.Context) ([]*domain.OathCredential, error) {
	return e.store.ListAll(ctx)
}

// Remove deletes a stored credential and its secret.
func (e *Engine) Remove(ctx context.Context, id string) error {
	if err := e.store.Remove(ctx, id); err != nil {
		return err
	}
	e.logger.Info("credential removed", "id", id)
	return nil
}
