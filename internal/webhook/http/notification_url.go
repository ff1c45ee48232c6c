// Package http provides the HTTP handler and middleware for webhook ingestion.
package http

import (
	"fmt"
	"net/http"
)

// NotificationURL reconstructs the public URL the provider signed, from the
// forwarding headers set by the load balancer. The scheme defaults to https
// because the provider only delivers to TLS endpoints.
func NotificationURL(r *http.Request) (string, error) {
	host := r.Header.Get("x-forwarded-host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return "", fmt.Errorf("unable to determine request host")
	}

	proto := r.Header.Get("x-forwarded-proto")
	if proto == "" {
		proto = "https"
	}

	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}

	return fmt.Sprintf("%s://%s%s%s", proto, host, path, query), nil
}
