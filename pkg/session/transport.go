package session

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/idx"
)

// Transport is an http.RoundTripper that authenticates requests to the API
// with the controller's session. Requests to the auth endpoints and to
// other hosts pass through untouched.
type Transport struct {
	// Base performs the actual requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	controller *Controller
	apiBase    *url.URL
	skipPaths  []string
}

// NewTransport authenticates requests under apiBaseURL. An empty
// apiBaseURL treats every request as an API request.
func NewTransport(controller *Controller, apiBaseURL string, base http.RoundTripper) (*Transport, error) {
	t := &Transport{
		Base:       base,
		controller: controller,
		skipPaths:  authclient.AuthPaths(),
	}
	if apiBaseURL != "" {
		u, err := url.Parse(apiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse api base url: %w", err)
		}
		u.Path = strings.TrimSuffix(u.Path, "/")
		t.apiBase = u
	}
	return t, nil
}

// Client returns an *http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.skip(req.URL) {
		return t.base().RoundTrip(req)
	}

	ctx := req.Context()
	logger := t.controller.logger.With(
		slog.String("req_id", idx.New().String()),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	v := t.controller.validator
	access := t.controller.store.AccessToken()
	switch {
	case v.IsTokenValid(access):
	case v.ShouldRefresh():
		logger.Debug("access token unusable, refreshing")
		tok, err := t.controller.freshToken(ctx, access)
		if err != nil {
			logger.Debug("refresh failed", slog.Any("error", err))
			closeBody(req)
			return nil, err
		}
		access = tok
	default:
		logger.Debug("no session, forwarding unauthenticated")
		return t.base().RoundTrip(req)
	}

	resp, err := t.base().RoundTrip(withBearer(req, access))
	if err != nil {
		return nil, err
	}
	logger.Debug("api response", slog.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		logger.Debug("401 on a request that cannot be replayed")
		return resp, nil
	}

	// One refresh and retry.
	drain(resp)
	logger.Debug("401 from api, refreshing")
	next, err := t.controller.freshToken(ctx, access)
	if err != nil {
		return nil, err
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		if retry.Body, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
	}
	resp, err = t.base().RoundTrip(withBearer(retry, next))
	if err == nil {
		logger.Debug("api response after refresh", slog.Int("status", resp.StatusCode))
	}
	return resp, err
}

// skip reports whether u bypasses authentication entirely.
func (t *Transport) skip(u *url.URL) bool {
	for _, p := range t.skipPaths {
		if strings.HasSuffix(u.Path, p) {
			return true
		}
	}
	if t.apiBase == nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, t.apiBase.Scheme) || !strings.EqualFold(u.Host, t.apiBase.Host) {
		return true
	}
	return u.Path != t.apiBase.Path && !strings.HasPrefix(u.Path, t.apiBase.Path+"/")
}

// withBearer clones req with the Authorization header set. The original
// request is never modified.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// closeBody honors the RoundTripper contract on paths that never hand req
// to the base transport.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
