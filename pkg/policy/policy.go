// Package policy defines the collaborator interface through which an
// external policy evaluator (jailbreak detection, device compliance, and
// similar) drives a credential's lock state. Deciding whether a credential
// is out of compliance happens outside this engine; this package only feeds
// the verdict into the lock/unlock transitions.
package policy

import "github.com/praxisid/oath-engine/pkg/domain"

// Evaluator decides whether a credential currently complies with an
// externally defined policy. When compliant is false, policyName names the
// violated policy.
type Evaluator interface {
	Evaluate(c *domain.OathCredential) (policyName string, compliant bool)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(c *domain.OathCredential) (string, bool)

func (f EvaluatorFunc) Evaluate(c *domain.OathCredential) (string, bool) {
	return f(c)
}

// Apply feeds the evaluator's verdict into the credential's lock state and
// reports whether the credential ended up locked. A violation locks the
// credential under the violated policy's name (overwriting any previously
// recorded name); a compliant verdict unlocks it.
func Apply(c *domain.OathCredential, ev Evaluator) bool {
	policyName, compliant := ev.Evaluate(c)
	if !compliant {
		c.Lock(policyName)
		return true
	}
	if c.IsLocked {
		c.Unlock()
	}
	return false
}
