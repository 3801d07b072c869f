package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is a step of a single login attempt.
type Stage int

const (
	StageStarted Stage = iota
	StageCodeReceived
	StageTokenExchanged
	StageProfileFetched
	StageUserPersisted
	StageSessionIssued
)

func (s Stage) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StageCodeReceived:
		return "code_received"
	case StageTokenExchanged:
		return "token_exchanged"
	case StageProfileFetched:
		return "profile_fetched"
	case StageUserPersisted:
		return "user_persisted"
	case StageSessionIssued:
		return "session_issued"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// LoginError is the terminal Failed state of an attempt. Stage is the last stage
// the attempt reached before failing.
type LoginError struct {
	Stage Stage
	Err   error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed after %s: %v", e.Stage, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// IdentityProvider is the provider side of the callback.
type IdentityProvider interface {
	ProfileFetcher
	Exchange(ctx context.Context, code string) (Token, error)
	VerifyIDToken(ctx context.Context, rawIDToken, subjectID string) error
}

// UserStore records the provider profile locally and reports whether a new
// user was created.
type UserStore interface {
	Record(ctx context.Context, profile Profile) (bool, error)
}

// Metrics receives login outcomes.
type Metrics interface {
	RecordLogin(stage string, success bool)
	RecordReconciliationCandidate()
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string, bool)       {}
func (noopMetrics) RecordReconciliationCandidate() {}

// LoginResult is the outcome of a successful attempt.
type LoginResult struct {
	Credential Credential
	Profile    Profile
	Created    bool
}

// LoginFlow runs the callback stages strictly in order. Nothing is retried: a
// failed attempt must restart from the authorization redirect because codes are
// single use.
type LoginFlow struct {
	provider IdentityProvider
	users    UserStore
	issuer   *SessionIssuer
	metrics  Metrics
	logger   *slog.Logger
}

// NewLoginFlow creates a LoginFlow. metrics may be nil.
func NewLoginFlow(provider IdentityProvider, users UserStore, issuer *SessionIssuer, metrics Metrics, logger *slog.Logger) *LoginFlow {
	if issuer == nil {
		issuer = NewSessionIssuer(time.Now)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginFlow{
		provider: provider,
		users:    users,
		issuer:   issuer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Complete exchanges code and establishes a session for the resulting identity.
func (f *LoginFlow) Complete(ctx context.Context, code string) (LoginResult, error) {
	stage := StageStarted
	result, err := f.run(ctx, code, &stage)
	f.metrics.RecordLogin(stage.String(), err == nil)
	if err != nil {
		return LoginResult{}, &LoginError{Stage: stage, Err: err}
	}
	return result, nil
}

func (f *LoginFlow) run(ctx context.Context, code string, stage *Stage) (LoginResult, error) {
	if code == "" {
		return LoginResult{}, fmt.Errorf("%w: missing authorization code", ErrInvalidRequest)
	}
	*stage = StageCodeReceived

	token, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return LoginResult{}, err
	}
	*stage = StageTokenExchanged

	profile, err := f.provider.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return LoginResult{}, err
	}
	if err := f.provider.VerifyIDToken(ctx, token.IDToken, profile.SubjectID); err != nil {
		return LoginResult{}, err
	}
	*stage = StageProfileFetched

	created, err := f.users.Record(ctx, profile)
	if err != nil {
		// The code is already consumed; the provider will not accept it again.
		f.logger.Error("login: user persistence failed after token exchange",
			"subject_id", profile.SubjectID,
			"reconciliation_candidate", true,
			"error", err,
		)
		f.metrics.RecordReconciliationCandidate()
		return LoginResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	*stage = StageUserPersisted

	credential, err := f.issuer.Issue(token.AccessToken, profile.SubjectID, token.ExpiresIn)
	if err != nil {
		return LoginResult{}, err
	}
	*stage = StageSessionIssued

	return LoginResult{Credential: credential, Profile: profile, Created: created}, nil
}
