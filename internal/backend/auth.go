package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anle/alumnet/internal/model"
)

// authResponse is the token grant shape returned by the auth surface.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r authResponse) session(now time.Time) model.Session {
	s := model.Session{
		UserID:       r.User.ID,
		Email:        r.User.Email,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	} else if exp := tokenExpiry(r.AccessToken); !exp.IsZero() {
		s.ExpiresAt = exp
	}
	return s
}

// tokenExpiry decodes the exp claim without verifying the signature. The
// backend is the verifier; the client only needs the expiry for UI gating.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("grant_type", "password")
	body := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, body, &resp); err != nil {
		return model.Session{}, err
	}
	return resp.session(time.Now()), nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (model.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("grant_type", "refresh_token")
	body := map[string]string{"refresh_token": refreshToken}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", q, body, &resp); err != nil {
		return model.Session{}, err
	}
	return resp.session(time.Now()), nil
}

// SignOut revokes the given access token remotely.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	scoped := *c
	scoped.tokens = StaticToken(accessToken)
	return scoped.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
}

// CurrentUser fetches the identity behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &resp); err != nil {
		return "", "", err
	}
	return resp.ID, resp.Email, nil
}
