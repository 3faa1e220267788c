package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/session"
)

// NewAPIProxy forwards /api/<path> to <apiBaseURL>/<path> through
// transport. Inbound credentials are dropped; the transport attaches the
// session's bearer token.
func NewAPIProxy(apiBaseURL string, transport http.RoundTripper, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("api base url must be absolute")
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, PathAPI)
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
			pr.SetURL(target)
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, session.ErrSessionExpired) {
				httpx.WriteDetail(w, http.StatusUnauthorized, session.MsgSessionExpired)
				return
			}
			logger.Warn("api proxy error", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.WriteDetail(w, http.StatusBadGateway, authclient.MsgBadGateway)
		},
	}, nil
}
