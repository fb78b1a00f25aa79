// Package atlassian provides the HTTP machinery shared by the
// Confluence and Jira connectors: authenticated clients, token-bucket
// rate limiting, offset cursor encoding, outcome classification, and
// transient retry with exponential backoff.
//
// Product-specific REST surfaces live in the confluence and jira
// subpackages; this package knows nothing about individual resources.
package atlassian
