package services_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"task-platform/backend/internal/models"
	"task-platform/backend/internal/services"

	"github.com/stretchr/testify/suite"
)

type AuthServiceTestSuite struct {
	ServiceSuite
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) register(email string) *services.Registration {
	registration, err := s.auth.Register(s.ctx, services.RegisterInput{
		Name:                 "Carol",
		Email:                email,
		Password:             "secret1",
		PasswordConfirmation: "secret1",
	})
	s.Require().NoError(err)
	return registration
}

func (s *AuthServiceTestSuite) verifiedSession(email string) *services.Session {
	registration := s.register(email)
	_, err := s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: email, Token: registration.Ticket.Token})
	s.Require().NoError(err)

	session, err := s.auth.Authenticate(s.ctx, services.LoginInput{Email: email, Password: "secret1"})
	s.Require().NoError(err)
	return session
}

func (s *AuthServiceTestSuite) TestRegister_IssuesVerificationTicket() {
	registration := s.register("  Carol@Example.com ")

	s.Equal("carol@example.com", registration.User.Email)
	s.Nil(registration.User.EmailVerifiedAt)
	s.NotEqual("secret1", registration.User.Password)
	s.Len(registration.Ticket.Token, 64)
	s.True(registration.Ticket.ExpiresAt.Equal(serviceEpoch.Add(24 * time.Hour)))

	link, err := url.Parse(registration.Ticket.URL)
	s.Require().NoError(err)
	s.Equal("/api/auth/verify-email", link.Path)
	s.Equal(registration.Ticket.Token, link.Query().Get("token"))
	s.Equal("carol@example.com", link.Query().Get("email"))
	s.Equal([]string{registration.Ticket.URL}, s.notifier.sent("carol@example.com"))

	var stored models.VerificationToken
	s.Require().NoError(s.db.First(&stored, "email = ?", "carol@example.com").Error)
	s.NotEqual(registration.Ticket.Token, stored.TokenHash)
	s.Len(stored.TokenHash, 64)
}

func (s *AuthServiceTestSuite) TestRegister_Validation() {
	_, err := s.auth.Register(s.ctx, services.RegisterInput{
		Name:                 "Alice",
		Email:                "ALICE@example.com",
		Password:             "12345",
		PasswordConfirmation: "54321",
	})
	serviceErr := s.requireKind(err, services.KindValidation)
	s.Contains(serviceErr.Fields, "password")
	s.Contains(serviceErr.Fields, "password_confirmation")

	_, err = s.auth.Register(s.ctx, services.RegisterInput{
		Name:                 "Alice",
		Email:                "ALICE@example.com",
		Password:             "123456",
		PasswordConfirmation: "123456",
	})
	serviceErr = s.requireKind(err, services.KindValidation)
	s.Equal([]string{"The email has already been taken."}, serviceErr.Fields["email"])
}

func (s *AuthServiceTestSuite) TestRegister_NotifierFailureDoesNotFailRegistration() {
	s.notifier.err = errors.New("queue unavailable")

	registration := s.register("dave@example.com")
	s.NotEmpty(registration.Ticket.Token)
}

func (s *AuthServiceTestSuite) TestAuthenticate_RequiresVerifiedEmail() {
	s.register("carol@example.com")

	_, err := s.auth.Authenticate(s.ctx, services.LoginInput{Email: "carol@example.com", Password: "secret1"})
	s.requireKind(err, services.KindUnverified)
	s.True(errors.Is(err, services.ErrUnverified))
}

func (s *AuthServiceTestSuite) TestAuthenticate_InvalidCredentials() {
	s.register("carol@example.com")

	for _, input := range []services.LoginInput{
		{Email: "carol@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		_, err := s.auth.Authenticate(s.ctx, input)
		serviceErr := s.requireKind(err, services.KindUnauthenticated)
		s.Equal("Invalid credentials", serviceErr.Message)
	}
}

func (s *AuthServiceTestSuite) TestVerify_TokenIsSingleUse() {
	registration := s.register("carol@example.com")
	input := services.VerifyEmailInput{Email: "carol@example.com", Token: registration.Ticket.Token}

	user, err := s.verification.Verify(s.ctx, input)
	s.Require().NoError(err)
	s.Require().NotNil(user.EmailVerifiedAt)
	s.True(user.EmailVerifiedAt.Equal(serviceEpoch))

	_, err = s.verification.Verify(s.ctx, input)
	serviceErr := s.requireKind(err, services.KindNotFound)
	s.Equal("Invalid or expired verification token", serviceErr.Message)
}

func (s *AuthServiceTestSuite) TestVerify_RejectsWrongAndExpiredTokens() {
	registration := s.register("carol@example.com")

	_, err := s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "carol@example.com", Token: "deadbeef"})
	s.requireKind(err, services.KindNotFound)

	_, err = s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "alice@example.com", Token: registration.Ticket.Token})
	s.requireKind(err, services.KindNotFound)

	s.clock.Advance(24*time.Hour + time.Second)
	_, err = s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "carol@example.com", Token: registration.Ticket.Token})
	s.requireKind(err, services.KindNotFound)

	_, err = s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "not-an-email", Token: ""})
	serviceErr := s.requireKind(err, services.KindValidation)
	s.Contains(serviceErr.Fields, "email")
	s.Contains(serviceErr.Fields, "token")
}

func (s *AuthServiceTestSuite) TestResend_ReplacesPendingToken() {
	first := s.register("carol@example.com")
	s.clock.Advance(time.Hour)

	second, err := s.verification.Resend(s.ctx, services.ResendVerificationInput{Email: "carol@example.com"})
	s.Require().NoError(err)
	s.NotEqual(first.Ticket.Token, second.Token)
	s.Len(s.notifier.sent("carol@example.com"), 2)

	_, err = s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "carol@example.com", Token: first.Ticket.Token})
	s.requireKind(err, services.KindNotFound)

	_, err = s.verification.Verify(s.ctx, services.VerifyEmailInput{Email: "carol@example.com", Token: second.Token})
	s.Require().NoError(err)
}

func (s *AuthServiceTestSuite) TestResend_VerifiedAndUnknownEmails() {
	_, err := s.verification.Resend(s.ctx, services.ResendVerificationInput{Email: "alice@example.com"})
	serviceErr := s.requireKind(err, services.KindConflict)
	s.Equal("Email is already verified", serviceErr.Message)

	_, err = s.verification.Resend(s.ctx, services.ResendVerificationInput{Email: "ghost@example.com"})
	serviceErr = s.requireKind(err, services.KindValidation)
	s.Equal([]string{"The selected email is invalid."}, serviceErr.Fields["email"])
}

func (s *AuthServiceTestSuite) TestCurrentUser_AndExpiry() {
	session := s.verifiedSession("carol@example.com")
	s.Equal("bearer", session.Tokens.TokenType)
	s.Equal(int64(900), session.Tokens.ExpiresIn)

	user, err := s.auth.CurrentUser(s.ctx, session.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal(session.User.ID, user.ID)

	s.clock.Advance(16 * time.Minute)
	_, err = s.auth.CurrentUser(s.ctx, session.Tokens.AccessToken)
	s.requireKind(err, services.KindUnauthenticated)
}

func (s *AuthServiceTestSuite) TestCurrentUser_RejectsForeignTokens() {
	for _, token := range []string{"", "not-a-jwt", "eyJhbGciOiJub25lIn0.eyJ1c2VyX2lkIjoieCJ9."} {
		_, err := s.auth.CurrentUser(s.ctx, token)
		s.requireKind(err, services.KindUnauthenticated)
	}
}

func (s *AuthServiceTestSuite) TestInvalidate_RevokesAccessAndRefreshTokens() {
	session := s.verifiedSession("carol@example.com")

	s.Require().NoError(s.auth.Invalidate(s.ctx, session.Tokens.AccessToken))

	_, err := s.auth.CurrentUser(s.ctx, session.Tokens.AccessToken)
	s.requireKind(err, services.KindUnauthenticated)

	_, err = s.auth.Refresh(s.ctx, session.Tokens.RefreshToken)
	s.requireKind(err, services.KindUnauthenticated)
}

func (s *AuthServiceTestSuite) TestRefresh_RotatesOnce() {
	session := s.verifiedSession("carol@example.com")

	s.clock.Advance(time.Minute)
	rotated, err := s.auth.Refresh(s.ctx, session.Tokens.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(session.Tokens.RefreshToken, rotated.Tokens.RefreshToken)
	s.NotEqual(session.Tokens.AccessToken, rotated.Tokens.AccessToken)
	s.Equal(session.User.ID, rotated.User.ID)

	_, err = s.auth.Refresh(s.ctx, session.Tokens.RefreshToken)
	s.requireKind(err, services.KindUnauthenticated)

	_, err = s.auth.Refresh(s.ctx, "garbage")
	s.requireKind(err, services.KindUnauthenticated)

	user, err := s.auth.CurrentUser(s.ctx, rotated.Tokens.AccessToken)
	s.Require().NoError(err)
	s.Equal(session.User.ID, user.ID)
}

func (s *AuthServiceTestSuite) TestTokenHasher_IsKeyed() {
	a := services.NewTokenHasher("one")
	b := services.NewTokenHasher("two")

	s.Equal(a.Hash("token"), a.Hash("token"))
	s.NotEqual(a.Hash("token"), b.Hash("token"))
	s.NotEqual(a.Hash("token"), a.Hash("token2"))
}
