package acceptance

import (
	"context"
	"net/http"

	"github.com/prperemyshlev/hrms-identity/internal/dto"
)

const testPassword = "Passw0rd!"

// register runs register plus register/verify and returns the session
func (s *Suite) register(name, email string) dto.AuthResponse {
	var dispatch dto.OTPDispatchResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{Name: name, Email: email, Password: testPassword}, "", &dispatch)
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)
	s.Require().Equal("otp_issued", dispatch.Status)
	s.Require().NotEmpty(dispatch.DevCode)

	var session dto.AuthResponse
	resp = s.postJSON("/api/v1/auth/register/verify", dto.RegisterVerifyRequest{Email: email, Code: dispatch.DevCode}, "", &session)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return session
}

func (s *Suite) TestRegisterVerifyAndMe() {
	session := s.register("Alice", "Alice@Example.com")

	s.NotEmpty(session.AccessToken)
	s.Equal("Bearer", session.TokenType)
	s.Equal("alice@example.com", session.Account.Email)
	s.Equal([]string{"user"}, session.Account.Roles)

	var me dto.AccountResponse
	resp := s.do(http.MethodGet, "/api/v1/auth/me", nil, session.AccessToken, &me)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(session.Account.ID, me.ID)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("Alice", "alice@example.com")

	var errResp dto.ErrorResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{Name: "Other", Email: "ALICE@example.com", Password: testPassword}, "", &errResp)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidBody() {
	var errResp dto.ErrorResponse
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{Name: "X", Email: "invalid-email", Password: "short"}, "", &errResp)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.NotNil(errResp.Details)
}

func (s *Suite) TestLogin_UniformFailure() {
	s.register("Bob", "bob@example.com")

	var wrongPassword, unknownEmail dto.ErrorResponse
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "Wrong1234"}, "", &wrongPassword)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp = s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "nobody@example.com", Password: "Wrong1234"}, "", &unknownEmail)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal(wrongPassword, unknownEmail)
}

func (s *Suite) TestRefreshRotationAndLogout() {
	session := s.register("Carol", "carol@example.com")

	var rotated dto.AuthResponse
	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: session.RefreshToken}, "", &rotated)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEqual(session.RefreshToken, rotated.RefreshToken)

	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: session.RefreshToken}, "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode, "a spent refresh token is rejected")

	resp = s.postJSON("/api/v1/auth/logout", dto.LogoutRequest{RefreshToken: rotated.RefreshToken}, rotated.AccessToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/auth/me", nil, rotated.AccessToken, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: rotated.RefreshToken}, "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestPasswordReset() {
	s.register("Dave", "dave@example.com")

	var dispatch dto.OTPDispatchResponse
	resp := s.postJSON("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "dave@example.com"}, "", &dispatch)
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/verify-otp", dto.VerifyOTPRequest{Email: "dave@example.com", Code: dispatch.DevCode}, "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{Email: "dave@example.com", Code: dispatch.DevCode, NewPassword: "N3wPassword"}, "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{Email: "dave@example.com", Code: dispatch.DevCode, NewPassword: "An0therOne"}, "", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode, "reset codes are single use")

	resp = s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "dave@example.com", Password: "N3wPassword"}, "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.postJSON("/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "ghost@example.com"}, "", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestAdminBlockOverridesSession() {
	admin := s.register("Root", "root@example.com")
	_, err := s.Postgres.DB.ExecContext(context.Background(),
		`INSERT INTO account_roles (account_id, role_id) SELECT $1, id FROM roles WHERE name = 'admin'`, admin.Account.ID)
	s.Require().NoError(err)

	erin := s.register("Erin", "erin@example.com")

	resp := s.postJSON("/api/v1/admin/accounts/"+admin.Account.ID+"/block", nil, erin.AccessToken, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode, "non-admins cannot reach the admin API")

	resp = s.postJSON("/api/v1/admin/accounts/"+erin.Account.ID+"/block", dto.BlockAccountRequest{Reason: "test"}, admin.AccessToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/auth/me", nil, erin.AccessToken, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp = s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: erin.RefreshToken}, "", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp = s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "erin@example.com", Password: testPassword}, "", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodDelete, "/api/v1/admin/accounts/"+erin.Account.ID, nil, admin.AccessToken, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp = s.postJSON("/api/v1/admin/accounts/"+erin.Account.ID+"/unblock", nil, admin.AccessToken, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}
