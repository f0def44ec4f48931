package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avolkhin/storefront-auth/internal/dto"
)

func (s *Suite) register(email, username, password string) *http.Response {
	reqBody := dto.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/register",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) login(email, password string) *http.Response {
	reqBody := dto.LoginRequest{
		Email:    email,
		Password: password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/login",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func (s *Suite) TestRegister_Success() {
	resp := s.register("alice@example.com", "alice", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var userResp dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&userResp))

	s.NotEmpty(userResp.ID)
	s.Equal("alice", userResp.Username)
	s.Equal("alice@example.com", userResp.Email)
	s.NotEmpty(userResp.CreatedAt)

	// Registration returns the profile only; no session is opened.
	s.Empty(resp.Cookies())
}

func (s *Suite) TestRegister_NeverLeaksPasswordFields() {
	resp := s.register("alice@example.com", "alice", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var raw map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&raw))
	for key := range raw {
		s.NotContains(key, "password")
		s.NotContains(key, "Password")
		s.NotContains(key, "refresh")
	}
}

func (s *Suite) TestRegister_DuplicateEmail() {
	resp1 := s.register("duplicate@example.com", "first", "Password123")
	resp1.Body.Close()
	s.Equal(http.StatusCreated, resp1.StatusCode)

	resp2 := s.register("duplicate@example.com", "second", "Password123")
	defer resp2.Body.Close()

	s.Equal(http.StatusConflict, resp2.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp2.Body).Decode(&errResp))
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_DuplicateUsername() {
	resp1 := s.register("first@example.com", "taken", "Password123")
	resp1.Body.Close()

	resp2 := s.register("second@example.com", "taken", "Password123")
	defer resp2.Body.Close()

	s.Equal(http.StatusConflict, resp2.StatusCode)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.register("not-an-email", "alice", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_PasswordMismatch() {
	reqBody := dto.RegisterRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "Password123",
		ConfirmPassword: "Different123",
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/register",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.NotNil(errResp.Details)
}

func (s *Suite) TestLogin_Success() {
	registerResp := s.register("login@example.com", "login", "Password123")
	registerResp.Body.Close()

	resp := s.login("login@example.com", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var userResp dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&userResp))
	s.Equal("login@example.com", userResp.Email)

	access := s.cookieByName(resp, "accessToken")
	s.Require().NotNil(access, "accessToken cookie should be set")
	s.NotEmpty(access.Value)
	s.True(access.HttpOnly)

	refresh := s.cookieByName(resp, "refreshToken")
	s.Require().NotNil(refresh, "refreshToken cookie should be set")
	s.NotEmpty(refresh.Value)
	s.Greater(refresh.MaxAge, access.MaxAge)

	session := s.cookieByName(resp, "token")
	s.Require().NotNil(session, "token cookie should be set")
	s.NotEmpty(session.Value)
}

func (s *Suite) TestLogin_CaseInsensitiveEmail() {
	registerResp := s.register("case@example.com", "casey", "Password123")
	registerResp.Body.Close()

	resp := s.login("CASE@Example.COM", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestLogin_UnknownAccount() {
	resp := s.login("nonexistent@example.com", "Password123")
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestLogin_WrongPassword() {
	registerResp := s.register("wrongpass@example.com", "wrongpass", "CorrectPassword123")
	registerResp.Body.Close()

	resp := s.login("wrongpass@example.com", "WrongPassword123")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Unauthorized", errResp.Error)
}

func (s *Suite) TestGoogleLogin_NotConfigured() {
	body, _ := json.Marshal(dto.GoogleLoginRequest{Token: "some-assertion"})

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/google",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestGetMe_Success() {
	registerResp := s.register("getme@example.com", "getme", "Password123")
	registerResp.Body.Close()

	loginResp := s.login("getme@example.com", "Password123")
	loginResp.Body.Close()
	access := s.cookieByName(loginResp, "accessToken")
	s.Require().NotNil(access)

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	req.AddCookie(access)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var userResp dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&userResp))
	s.Equal("getme@example.com", userResp.Email)
	s.NotEmpty(userResp.CreatedAt)
	s.NotEmpty(userResp.UpdatedAt)
}

func (s *Suite) TestGetMe_BearerHeader() {
	registerResp := s.register("bearer@example.com", "bearer", "Password123")
	registerResp.Body.Close()

	loginResp := s.login("bearer@example.com", "Password123")
	loginResp.Body.Close()
	access := s.cookieByName(loginResp, "accessToken")
	s.Require().NotNil(access)

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", access.Value))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestGetMe_NoToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_RotatesTokens() {
	registerResp := s.register("refresh@example.com", "refresh", "Password123")
	registerResp.Body.Close()

	loginResp := s.login("refresh@example.com", "Password123")
	loginResp.Body.Close()
	oldRefresh := s.cookieByName(loginResp, "refreshToken")
	s.Require().NotNil(oldRefresh)

	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	req.AddCookie(oldRefresh)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	newRefresh := s.cookieByName(resp, "refreshToken")
	s.Require().NotNil(newRefresh)
	s.NotEmpty(newRefresh.Value)
	s.NotEqual(oldRefresh.Value, newRefresh.Value)

	// The superseded refresh token is dead.
	retryReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	retryReq.AddCookie(oldRefresh)

	retryResp, err := http.DefaultClient.Do(retryReq)
	s.Require().NoError(err)
	defer retryResp.Body.Close()

	s.Equal(http.StatusUnauthorized, retryResp.StatusCode)
}

func (s *Suite) TestRefresh_NoCookie() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_Success() {
	registerResp := s.register("logout@example.com", "logout", "Password123")
	registerResp.Body.Close()

	loginResp := s.login("logout@example.com", "Password123")
	loginResp.Body.Close()
	access := s.cookieByName(loginResp, "accessToken")
	refresh := s.cookieByName(loginResp, "refreshToken")
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)

	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	req.AddCookie(access)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var successResp dto.SuccessResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&successResp))
	s.Equal("Logged out successfully", successResp.Message)

	// All three cookies come back cleared.
	for _, name := range []string{"accessToken", "refreshToken", "token"} {
		cleared := s.cookieByName(resp, name)
		s.Require().NotNil(cleared, "cookie %s should be cleared", name)
		s.Empty(cleared.Value)
	}

	// The refresh token no longer works.
	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	refreshReq.AddCookie(refresh)

	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	defer refreshResp.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)

	// The access token is stateless and stays valid until expiry.
	meReq, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	meReq.AddCookie(access)

	meResp, err := http.DefaultClient.Do(meReq)
	s.Require().NoError(err)
	defer meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)
}

func (s *Suite) TestLogout_NoToken() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestChangePassword_Success() {
	registerResp := s.register("changepw@example.com", "changepw", "OldPassword123")
	registerResp.Body.Close()

	loginResp := s.login("changepw@example.com", "OldPassword123")
	loginResp.Body.Close()
	access := s.cookieByName(loginResp, "accessToken")
	refresh := s.cookieByName(loginResp, "refreshToken")
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)

	body, _ := json.Marshal(dto.ChangePasswordRequest{
		OldPassword: "OldPassword123",
		NewPassword: "NewPassword456",
	})
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/change-password", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(access)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	// Old credentials fail, new ones work.
	oldLogin := s.login("changepw@example.com", "OldPassword123")
	oldLogin.Body.Close()
	s.Equal(http.StatusUnauthorized, oldLogin.StatusCode)

	newLogin := s.login("changepw@example.com", "NewPassword456")
	newLogin.Body.Close()
	s.Equal(http.StatusOK, newLogin.StatusCode)

	// The refresh token issued before the change is dead.
	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	refreshReq.AddCookie(refresh)

	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	defer refreshResp.Body.Close()
	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)
}

func (s *Suite) TestChangePassword_WrongOldPassword() {
	registerResp := s.register("wrongold@example.com", "wrongold", "Password123")
	registerResp.Body.Close()

	loginResp := s.login("wrongold@example.com", "Password123")
	loginResp.Body.Close()
	access := s.cookieByName(loginResp, "accessToken")
	s.Require().NotNil(access)

	body, _ := json.Marshal(dto.ChangePasswordRequest{
		OldPassword: "NotThePassword",
		NewPassword: "NewPassword456",
	})
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/change-password", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(access)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestCompleteFlow() {
	email := "complete@example.com"

	registerResp := s.register(email, "complete", "Password123")
	defer registerResp.Body.Close()
	s.Equal(http.StatusCreated, registerResp.StatusCode)

	loginResp := s.login(email, "Password123")
	loginResp.Body.Close()
	s.Equal(http.StatusOK, loginResp.StatusCode)
	access := s.cookieByName(loginResp, "accessToken")
	refresh := s.cookieByName(loginResp, "refreshToken")
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)

	meReq, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	meReq.AddCookie(access)
	meResp, err := http.DefaultClient.Do(meReq)
	s.Require().NoError(err)
	meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)

	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	refreshReq.AddCookie(refresh)
	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	refreshResp.Body.Close()
	s.Equal(http.StatusOK, refreshResp.StatusCode)

	newAccess := s.cookieByName(refreshResp, "accessToken")
	s.Require().NotNil(newAccess)

	logoutReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	logoutReq.AddCookie(newAccess)
	logoutResp, err := http.DefaultClient.Do(logoutReq)
	s.Require().NoError(err)
	logoutResp.Body.Close()
	s.Equal(http.StatusOK, logoutResp.StatusCode)

	// The access token outlives the session server-side state.
	meReq2, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)
	meReq2.AddCookie(newAccess)
	meResp2, err := http.DefaultClient.Do(meReq2)
	s.Require().NoError(err)
	meResp2.Body.Close()
	s.Equal(http.StatusOK, meResp2.StatusCode)
}
