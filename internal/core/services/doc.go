// Package services implements the driving port interfaces.
// The scanner service runs the discovery traversal over the driven
// connector, extractor and store ports; the sessions service serves
// the stored history.
package services
