// Package connectors groups the product connectors the scanner
// traverses. Each subpackage implements the driven Connector port for
// one REST surface: confluence for Confluence Cloud, jira for Jira
// Cloud, with the shared HTTP machinery in atlassian.
package connectors
