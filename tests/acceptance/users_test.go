package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/avolkhin/storefront-auth/internal/dto"
)

func (s *Suite) TestListUsers() {
	resp1 := s.register("list1@example.com", "list1", "Password123")
	resp1.Body.Close()
	resp2 := s.register("list2@example.com", "list2", "Password123")
	resp2.Body.Close()

	resp, err := http.Get(s.BaseURL + "/api/v1/users")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var users []dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&users))
	s.Len(users, 2)
}

func (s *Suite) TestGetUser() {
	registerResp := s.register("profile@example.com", "profile", "Password123")
	defer registerResp.Body.Close()

	var created dto.UserResponse
	s.Require().NoError(json.NewDecoder(registerResp.Body).Decode(&created))

	resp, err := http.Get(s.BaseURL + "/api/v1/users/" + created.ID)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal(created.ID, user.ID)
	s.Equal("profile", user.Username)
}

func (s *Suite) TestGetUser_NotFound() {
	resp, err := http.Get(s.BaseURL + "/api/v1/users/00000000-0000-4000-8000-000000000000")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}
