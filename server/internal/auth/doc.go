// Package auth provides authentication middleware for sentinel-server.
//
// APIKey(mode, header, key, next) wraps an http.Handler and validates the API
// key carried in the named request header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware responds 401 with a JSON error body.
package auth
