package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tms/internal/clients/parentapp"
	"tms/internal/domain"
	"tms/internal/metrics"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// exchanges coalesces concurrent callbacks carrying the same authorization code.
// Codes are single use, so a second exchange would fail at the parent app.
var exchanges singleflight.Group

type OAuthService struct {
	Client    *parentapp.Client
	Students  repositories.StudentRepository
	Tokens    TokenIssuer
	RequestID string
}

// Authorize returns the consent URL and the state the browser must echo back.
func (s OAuthService) Authorize() (string, string, error) {
	if !s.Client.Configured() {
		return "", "", domain.InternalError{Msg: "parent app OAuth is not configured"}
	}
	state := uuid.NewString()
	return s.Client.AuthorizeURL(state), state, nil
}

type exchangeResult struct {
	token   parentapp.Token
	profile parentapp.Profile
}

// Callback completes the OAuth flow and issues our own session token.
func (s OAuthService) Callback(ctx context.Context, code string) (Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{}, domain.ValidationError{Field: "code", Msg: "required"}
	}
	if !s.Client.Configured() {
		return Session{}, domain.InternalError{Msg: "parent app OAuth is not configured"}
	}

	v, err, shared := exchanges.Do(code, func() (any, error) {
		tok, err := s.Client.ExchangeCode(ctx, code)
		if err != nil {
			return nil, err
		}
		profile := parentapp.Profile{}
		if tok.User != nil {
			profile = *tok.User
		}
		if profile.Email == "" {
			profile, err = s.Client.FetchProfile(ctx, tok.AccessToken)
			if err != nil {
				return nil, err
			}
		}
		return exchangeResult{token: tok, profile: profile}, nil
	})
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues(strconv.FormatBool(shared), "error").Inc()
		metrics.LoginAttempts.WithLabelValues("oauth", "failed").Inc()
		utils.LogEvent(s.RequestID, "oauth", "exchange_error", err.Error())
		if domain.IsUnauthorized(err) || domain.IsUpstream(err) || domain.IsNotFound(err) {
			return Session{}, domain.UnauthorizedError{Msg: "authorization code rejected", Err: err}
		}
		return Session{}, err
	}
	metrics.OAuthExchanges.WithLabelValues(strconv.FormatBool(shared), "ok").Inc()

	res := v.(exchangeResult)
	email := utils.NormalizeEmail(res.profile.Email)
	if !utils.ValidEmail(email) {
		return Session{}, domain.UnauthorizedError{Msg: "parent app profile has no usable email"}
	}

	id, err := s.Students.UpsertFromParentApp(ctx, repositories.ParentAppIdentity{
		ExternalID: res.profile.ID,
		Email:      email,
		Name:       utils.NormalizeSpace(res.profile.FullName),
		RollNumber: strings.TrimSpace(res.profile.RollNumber),
		Phone:      strings.TrimSpace(res.profile.Phone),
	})
	if err != nil {
		return Session{}, err
	}

	token, exp, err := s.Tokens.Issue(domain.Principal{UserID: id, Role: domain.RoleStudent, Email: email})
	if err != nil {
		return Session{}, domain.InternalError{Msg: "failed to issue token", Err: err}
	}
	metrics.LoginAttempts.WithLabelValues("oauth", "success").Inc()
	utils.LogEvent(s.RequestID, "oauth", "login", fmt.Sprintf("student_id=%d shared=%v", id, shared))
	name := utils.NormalizeSpace(res.profile.FullName)
	if name == "" {
		name = email
	}
	return Session{
		Token:     token,
		ExpiresAt: exp,
		User:      domain.Principal{UserID: id, Role: domain.RoleStudent, Email: email},
		Name:      name,
	}, nil
}
