package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/metrics"
	"tms/internal/repositories"
	"tms/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// Session is what every successful login returns.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      domain.Principal `json:"user"`
	Name      string           `json:"name"`
}

type AuthService struct {
	Accounts          repositories.AccountRepository
	Students          repositories.StudentRepository
	Tokens            TokenIssuer
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	AllowMockLogin    bool
	Now               func() time.Time
	RequestID         string
}

var errBadCredentials = domain.UnauthorizedError{Msg: "invalid email or password"}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login checks a password login for the given account kind, handling lockout.
func (s AuthService) Login(ctx context.Context, kind repositories.AccountKind, email, password string) (Session, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return Session{}, domain.ValidationError{Field: "email", Msg: "invalid email"}
	}
	if password == "" {
		return Session{}, domain.ValidationError{Field: "password", Msg: "required"}
	}
	method := strings.TrimSuffix(string(kind), "s")

	cred, err := s.Accounts.FindCredential(ctx, kind, email)
	if err != nil {
		if domain.IsNotFound(err) {
			metrics.LoginAttempts.WithLabelValues(method, "unknown").Inc()
			return Session{}, errBadCredentials
		}
		return Session{}, err
	}

	now := s.now()
	if cred.Locked(now) {
		metrics.LoginAttempts.WithLabelValues(method, "locked").Inc()
		utils.LogEvent(s.RequestID, "auth", "login_locked", fmt.Sprintf("kind=%s id=%d", kind, cred.ID))
		return Session{}, domain.ForbiddenError{Msg: "account locked, try again after " + utils.FormatDateTime(*cred.LockedUntil)}
	}
	if cred.Status == "inactive" && kind != repositories.AccountStudent {
		metrics.LoginAttempts.WithLabelValues(method, "inactive").Inc()
		return Session{}, domain.ForbiddenError{Msg: "account disabled"}
	}

	if cred.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		attempts := cred.FailedAttempts
		if cred.LockedUntil != nil {
			// lockout already served
			attempts = 0
		}
		var lockUntil *time.Time
		if s.MaxFailedAttempts > 0 && attempts+1 >= s.MaxFailedAttempts {
			until := now.Add(s.lockout())
			lockUntil = &until
		}
		if err := s.Accounts.RecordFailedLogin(ctx, kind, cred.ID, now, lockUntil); err != nil {
			utils.LogEvent(s.RequestID, "auth", "record_failed_error", err.Error())
		}
		metrics.LoginAttempts.WithLabelValues(method, "failed").Inc()
		if lockUntil != nil {
			utils.LogEvent(s.RequestID, "auth", "lockout", fmt.Sprintf("kind=%s id=%d", kind, cred.ID))
		}
		return Session{}, errBadCredentials
	}

	if err := s.Accounts.RecordSuccessfulLogin(ctx, kind, cred.ID, now); err != nil {
		utils.LogEvent(s.RequestID, "auth", "record_success_error", err.Error())
	}
	metrics.LoginAttempts.WithLabelValues(method, "success").Inc()
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("kind=%s id=%d", kind, cred.ID))
	return s.session(domain.Principal{UserID: cred.ID, Role: cred.Role, Email: cred.Email}, cred.Name)
}

// MockLogin issues a token for an existing student without a password; disabled by default.
func (s AuthService) MockLogin(ctx context.Context, email string) (Session, error) {
	if !s.AllowMockLogin {
		return Session{}, domain.NotFoundError{Resource: "mock login"}
	}
	email = utils.NormalizeEmail(email)
	st, err := s.Students.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	metrics.LoginAttempts.WithLabelValues("mock", "success").Inc()
	utils.LogEvent(s.RequestID, "auth", "mock_login", fmt.Sprintf("student_id=%d", st.ID))
	return s.session(domain.Principal{UserID: st.ID, Role: domain.RoleStudent, Email: st.Email}, st.Name)
}

func (s AuthService) session(p domain.Principal, name string) (Session, error) {
	token, exp, err := s.Tokens.Issue(p)
	if err != nil {
		return Session{}, domain.InternalError{Msg: "failed to issue token", Err: err}
	}
	return Session{Token: token, ExpiresAt: exp, User: p, Name: name}, nil
}

func (s AuthService) lockout() time.Duration {
	if s.LockoutDuration > 0 {
		return s.LockoutDuration
	}
	return 30 * time.Minute
}
