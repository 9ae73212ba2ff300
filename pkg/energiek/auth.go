package energiek

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tariefwacht/tariefwacht/pkg/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Remember is always serialized as null; the portal's web client sends it
	// that way and its semantics are unspecified.
	Remember *bool `json:"remember"`
}

type loginResponse struct {
	Success       bool `json:"success"`
	Organizations []struct {
		UUID     string `json:"uuid"`
		Clusters []struct {
			Cluster string `json:"cluster"`
		} `json:"clusters"`
	} `json:"organizations"`
}

// Login performs the portal's three-step handshake: fetch the CSRF cookie,
// announce the username (prelogin), then post the credentials. On success
// the client is marked authenticated and remembers the first organization
// and cluster for subsequent price queries. Any failure leaves the client
// unauthenticated.
func (c *Client) Login(ctx context.Context, email, password string) error {
	// 1. bootstrap the session and anti-forgery token
	if err := c.request(ctx, http.MethodGet, "/api/auth/csrf", requestOpts{}, nil); err != nil {
		return err
	}
	c.mu.Lock()
	token := c.xsrfToken
	c.mu.Unlock()
	if token == "" {
		return &AuthError{Message: "no XSRF token received"}
	}

	// 2. prelogin prepares server-side state; the response body is not
	// interesting
	err := c.request(ctx, http.MethodPost, "/api/auth/prelogin", requestOpts{
		jsonBody: struct {
			Username string `json:"username"`
		}{Username: email},
	}, nil)
	if err != nil {
		return err
	}

	// 3. the actual login
	var res loginResponse
	err = c.request(ctx, http.MethodPost, "/api/auth/login", requestOpts{
		jsonBody: loginRequest{Username: email, Password: password},
	}, &res)
	if err != nil {
		return err
	}

	if !res.Success {
		return &AuthError{Message: "login failed"}
	}

	if len(res.Organizations) == 0 || len(res.Organizations[0].Clusters) == 0 {
		return &RequestError{Message: "no clusters found for user"}
	}
	org := res.Organizations[0]

	c.mu.Lock()
	c.orgUUID = org.UUID
	c.cluster = org.Clusters[0].Cluster
	c.authenticated = true
	c.mu.Unlock()

	log.Ctx(ctx).DebugContext(
		ctx,
		"energiek login success",
		slog.String("organization", org.UUID),
		slog.String("cluster", org.Clusters[0].Cluster),
	)
	return nil
}
