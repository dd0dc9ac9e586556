// Package utils holds small request and formatting helpers shared by the
// HTTP handlers and notifiers.
package utils
