package bedrock

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Bedrock tool names must match [a-zA-Z0-9_-]{1,64}.
const (
	maxToolNameLen = 64
	toolNameHash   = 8
	functionsScope = "$FUNCTIONS."
)

// ToolNames maps provider-visible tool names back to canonical tool names.
type ToolNames map[string]string

// NewToolNames returns the reverse map of the given canonical tool names.
func NewToolNames(canonical ...string) ToolNames {
	names := make(ToolNames, len(canonical))
	for _, c := range canonical {
		if c == "" {
			continue
		}
		names[SanitizeToolName(c)] = c
	}
	return names
}

// Canonical returns the canonical name of the tool Bedrock reported as raw.
// Unmapped names are returned without their function scope prefix.
func (n ToolNames) Canonical(raw string) string {
	key := strings.TrimPrefix(raw, functionsScope)
	if c, ok := n[key]; ok {
		return c
	}
	return key
}

// SanitizeToolName maps a canonical tool name such as "atlas.read.get_time"
// to the name registered with Bedrock. Dots become underscores, disallowed
// runes become underscores, and names over 64 bytes are truncated with a
// stable hash suffix so distinct inputs stay distinct.
func SanitizeToolName(in string) string {
	if in == "" {
		return ""
	}
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, in)
	if len(out) <= maxToolNameLen {
		return out
	}
	sum := sha256.Sum256([]byte(in))
	return out[:maxToolNameLen-1-toolNameHash] + "_" + hex.EncodeToString(sum[:])[:toolNameHash]
}
