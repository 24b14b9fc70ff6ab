package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"petromanage/internal/model"
)

type route struct {
	prefix string
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// Proxy forwards each request to the upstream with the longest matching path
// prefix. Paths are forwarded as received; upstreams own their full path.
type Proxy struct {
	routes []route
	logger *slog.Logger
}

func NewProxy(routes map[string]string, logger *slog.Logger) (*Proxy, error) {
	if len(routes) == 0 {
		return nil, errors.New("gateway: at least one route is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Proxy{logger: logger.With("component", "proxy")}
	for prefix, rawTarget := range routes {
		target, err := url.Parse(rawTarget)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway: route %s has invalid upstream %q", prefix, rawTarget)
		}

		prefix = cleanPath(prefix)
		p.routes = append(p.routes, route{prefix: prefix, target: target, proxy: p.reverseProxy(prefix, target)})
	}

	sort.Slice(p.routes, func(i, j int) bool {
		return len(p.routes[i].prefix) > len(p.routes[j].prefix)
	})

	return p, nil
}

func (p *Proxy) reverseProxy(prefix string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.DeadlineExceeded) {
				p.logger.Warn("upstream timed out", "route", prefix, "upstream", target.Host, "path", r.URL.Path)
				writeRejection(w, http.StatusGatewayTimeout, model.ErrorResponse{
					Error:   http.StatusText(http.StatusGatewayTimeout),
					Message: "Upstream service timed out",
					Code:    "UPSTREAM_TIMEOUT",
				})
				return
			}

			p.logger.Error("upstream request failed", "route", prefix, "upstream", target.Host, "path", r.URL.Path, "error", err)
			writeRejection(w, http.StatusBadGateway, model.ErrorResponse{
				Error:   http.StatusText(http.StatusBadGateway),
				Message: "Upstream service unavailable",
				Code:    "UPSTREAM_UNAVAILABLE",
			})
		},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range p.routes {
		if rt.prefix == "/" || r.URL.Path == rt.prefix || strings.HasPrefix(r.URL.Path, rt.prefix+"/") {
			rt.proxy.ServeHTTP(w, r)
			return
		}
	}

	writeRejection(w, http.StatusNotFound, model.ErrorResponse{
		Error:   http.StatusText(http.StatusNotFound),
		Message: "No route for " + r.URL.Path,
		Code:    "ROUTE_NOT_FOUND",
	})
}

// Prefixes lists the routed prefixes, longest first.
func (p *Proxy) Prefixes() []string {
	out := make([]string, len(p.routes))
	for i, rt := range p.routes {
		out[i] = rt.prefix
	}
	return out
}
