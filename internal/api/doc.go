// Package api exposes the review session controller over HTTP. It decodes
// requests, reads the caller identity placed in the context by the identity
// middleware, and maps service errors to status codes without leaking
// internal detail.
package api
