package domain

import "errors"

// Parse and validation errors
var (
	ErrInvalidURI            = errors.New("invalid provisioning URI")
	ErrInvalidOathType       = errors.New("invalid oath type")
	ErrInvalidAlgorithm      = errors.New("invalid oath algorithm")
	ErrInvalidParameterValue = errors.New("parameter value out of range")
	ErrInvalidSecret         = errors.New("invalid secret")
)

// Generation and lifecycle errors
var (
	ErrCredentialLocked     = errors.New("credential is locked by policy")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrCodeGenerationFailed = errors.New("code generation failed")
)
