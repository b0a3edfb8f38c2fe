package tests

import (
	"net/http"
)

func (s *APITestSuite) TestHealth() {
	w, _ := s.doJSON(http.MethodGet, "/api/health", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"healthy"`)
}

func (s *APITestSuite) TestUserRegistration() {
	alice := s.register("alice@example.com", "Alice")
	s.NotEmpty(alice.UserID)
	s.Equal("alice@example.com", alice.Email)
	s.NotEmpty(alice.Token)

	// Same email again
	w, body := s.doJSON(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.False(body.Success)
	s.Equal("Email already registered", body.Error.Message)

	// Missing fields
	w, body = s.doJSON(http.MethodPost, "/api/auth/register", map[string]string{"email": "bob@example.com"}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", body.Error.Code)

	// Not JSON at all
	w, _ = s.doJSON(http.MethodPost, "/api/auth/register", "nope", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestUserLogin() {
	alice := s.register("alice@example.com", "Alice")

	w, body := s.doJSON(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(body.Success)

	var out session
	s.decode(body.Data, &out)
	s.Equal(alice.UserID, out.UserID)
	s.Equal("Alice", out.Name)
	s.NotEmpty(out.Token)

	w, body = s.doJSON(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid credentials", body.Error.Message)

	for _, email := range []string{"nobody@example.com", "not-an-email"} {
		w, _ = s.doJSON(http.MethodPost, "/api/auth/login", map[string]string{
			"email": email, "password": "secret123",
		}, "")
		s.Equal(http.StatusUnauthorized, w.Code, email)
	}
}

func (s *APITestSuite) TestLogout() {
	alice := s.register("alice@example.com", "Alice")

	w, _ := s.doJSON(http.MethodPost, "/api/auth/logout", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(http.MethodPost, "/api/auth/logout", nil, alice.Token)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestUserProfile() {
	alice := s.register("alice@example.com", "Alice")

	w, _ := s.doJSON(http.MethodGet, "/api/user/profile", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, body := s.doJSON(http.MethodGet, "/api/user/profile", nil, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var profile map[string]interface{}
	s.decode(body.Data, &profile)
	s.Equal(alice.UserID, profile["user_id"])
	s.Equal(float64(100), profile["reputation_score"])
	s.NotContains(profile, "password_hash")

	w, body = s.doJSON(http.MethodPut, "/api/user/profile", map[string]string{"phone": "0912-345-678"}, alice.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(body.Data), "0912-345-678")
}

func (s *APITestSuite) TestLocalizedErrors() {
	req := newRequest(http.MethodGet, "/api/products/PRD_NOPE")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")
	w, body := s.do(req, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("找不到商品", body.Error.Message)
}
