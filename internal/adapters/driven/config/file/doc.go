// Package file loads the spider's TOML configuration from disk and
// overlays it with environment variables. Credentials are only ever
// read, never written; the token is expected in ATLASSIAN_API_TOKEN.
package file
