// Package agent defines the identifiers shared by the agent core packages.
package agent

import "strings"

// Ident is a fully qualified agent identifier of the form "service.agent".
// Identifiers without a service qualifier are accepted as bare names.
type Ident string

// Service returns the service qualifier of i, or "" when i is unqualified.
func (i Ident) Service() string {
	if idx := strings.LastIndexByte(string(i), '.'); idx >= 0 {
		return string(i[:idx])
	}
	return ""
}

// Name returns the agent name of i without its service qualifier.
func (i Ident) Name() string {
	return string(i[strings.LastIndexByte(string(i), '.')+1:])
}
