package service

import "credential-gate/internal/domain"

// OutcomeKind tags the result of a gate operation.
type OutcomeKind int

const (
	// OutcomeAuthenticated carries a live session.
	OutcomeAuthenticated OutcomeKind = iota + 1
	// OutcomeValidationFailed carries per-field messages; nothing was mutated.
	OutcomeValidationFailed
	// OutcomeInvalidCredentials is the single generic login failure.
	OutcomeInvalidCredentials
	// OutcomeRedirect tells the caller to send the client elsewhere.
	OutcomeRedirect
)

// RedirectReason says why a redirect was issued.
type RedirectReason int

const (
	RedirectUnauthenticated RedirectReason = iota + 1
	RedirectPasswordChanged
	RedirectLoggedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Outcome is what a gate operation decided. The caller picks the transport
// action: an HTTP handler redirects or renders, a CLI prints.
type Outcome struct {
	Kind OutcomeKind
	// Session is set for OutcomeAuthenticated.
	Session *domain.Session
	// Token is set only when Authenticate has just created the session.
	Token string
	// Fields is set for OutcomeValidationFailed.
	Fields map[string]string
	// RedirectTo is the next location for OutcomeRedirect, and the landing
	// page after a fresh login.
	RedirectTo string
	Reason     RedirectReason
}

// Err maps the outcome onto the package error values. Authenticated outcomes
// and redirects issued after a successful mutation return nil.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeValidationFailed:
		return &ValidationError{Fields: o.Fields}
	case OutcomeInvalidCredentials:
		return ErrInvalidCredentials
	case OutcomeRedirect:
		if o.Reason == RedirectUnauthenticated {
			return ErrSessionRequired
		}
	}
	return nil
}

func authenticated(sess *domain.Session, token, landing string) Outcome {
	return Outcome{Kind: OutcomeAuthenticated, Session: sess, Token: token, RedirectTo: landing}
}

func validationFailed(fields map[string]string) Outcome {
	return Outcome{Kind: OutcomeValidationFailed, Fields: fields}
}

func invalidCredentials() Outcome {
	return Outcome{Kind: OutcomeInvalidCredentials}
}

func redirect(target string, reason RedirectReason) Outcome {
	return Outcome{Kind: OutcomeRedirect, RedirectTo: target, Reason: reason}
}
