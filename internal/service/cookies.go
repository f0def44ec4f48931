package service

import (
	"net/http"
	"time"
)

// Names of the cookies carried to the client on successful
// authentication.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieSessionToken = "token"
)

// CookiePolicy is the single source of cookie attributes. Login,
// federated login, refresh, and logout all derive their Set-Cookie
// instructions from the same policy.
type CookiePolicy struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// Cookie is one Set-Cookie instruction for the client.
type Cookie struct {
	Name   string
	Value  string
	MaxAge int
}

// SessionCookieSet holds the three session cookies issued on login.
type SessionCookieSet []Cookie

func (p CookiePolicy) cookieSet(accessToken, refreshToken, sessionToken string, accessTTL, refreshTTL time.Duration) SessionCookieSet {
	return SessionCookieSet{
		{Name: CookieAccessToken, Value: accessToken, MaxAge: int(accessTTL.Seconds())},
		{Name: CookieRefreshToken, Value: refreshToken, MaxAge: int(refreshTTL.Seconds())},
		{Name: CookieSessionToken, Value: sessionToken, MaxAge: int(accessTTL.Seconds())},
	}
}

// ClearSet returns clear instructions for every session cookie,
// derived from the same policy used to set them.
func (p CookiePolicy) ClearSet() SessionCookieSet {
	return SessionCookieSet{
		{Name: CookieAccessToken, MaxAge: -1},
		{Name: CookieRefreshToken, MaxAge: -1},
		{Name: CookieSessionToken, MaxAge: -1},
	}
}
