// Package ids provides the bridge's validated identifier newtypes:
// Principal, CanisterId, MethodName, ServerName, and ToolId. The teacher
// validates agent/tool names inline at the router boundary
// (ParsePrefixedTool in pkg/mcp/router.go); this package promotes that
// validation into smart constructors so an unvalidated identifier can
// never silently flow into a canister call.
package ids

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
)

// maxPrincipalBytes is the largest a raw principal byte string can be.
const maxPrincipalBytes = 29

// Principal identifies a caller: a user, canister, or the anonymous actor.
type Principal struct {
	raw []byte
}

// Anonymous returns the well-known zero-length-tagged anonymous principal.
func Anonymous() Principal {
	return Principal{raw: []byte{0x04}}
}

// NewPrincipal validates and wraps raw principal bytes.
func NewPrincipal(raw []byte) (Principal, error) {
	if len(raw) == 0 || len(raw) > maxPrincipalBytes {
		return Principal{}, bridgeerr.NewValidationError("principal", fmt.Sprintf("must be 1-%d bytes, got %d", maxPrincipalBytes, len(raw)))
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Principal{raw: cp}, nil
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return bytes.Equal(p.raw, Anonymous().raw)
}

// Equal reports whether p and other identify the same principal.
func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p.raw, other.raw)
}

// Bytes returns the raw principal bytes.
func (p Principal) Bytes() []byte {
	cp := make([]byte, len(p.raw))
	copy(cp, p.raw)
	return cp
}

// String renders the checksummed dash-separated text form.
func (p Principal) String() string {
	return encodePrincipalText(p.raw)
}

// ParsePrincipalText parses the checksummed dash-separated text form
// produced by Principal.String, for principals of any length — unlike
// ParseCanisterID, it does not require the fixed 4x5+3 grouping that only
// canister-shaped (10-byte) principals produce.
func ParsePrincipalText(text string) (Principal, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	raw, err := decodePrincipalText(text)
	if err != nil {
		return Principal{}, bridgeerr.NewValidationError("principal", err.Error())
	}
	return NewPrincipal(raw)
}

// CanisterId wraps a Principal known to identify a canister.
type CanisterId struct {
	Principal
}

var canisterIDPattern = regexp.MustCompile(`^[a-z0-9]{5}(-[a-z0-9]{5}){3}-[a-z0-9]{3}$`)

// ParseCanisterID validates the dash-separated base32 + checksum text form
// (e.g. "rrkah-fqaaa-aaaaa-aaaaq-cai") and returns a CanisterId.
func ParseCanisterID(text string) (CanisterId, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if !canisterIDPattern.MatchString(text) {
		return CanisterId{}, bridgeerr.NewValidationError("canister_id", fmt.Sprintf("malformed canister id %q", text))
	}
	raw, err := decodePrincipalText(text)
	if err != nil {
		return CanisterId{}, bridgeerr.NewValidationError("canister_id", err.Error())
	}
	p, err := NewPrincipal(raw)
	if err != nil {
		return CanisterId{}, err
	}
	return CanisterId{Principal: p}, nil
}

// identifierPattern matches the shared grammar for MethodName, ServerName,
// and ToolId: non-empty, ASCII alphanumerics and underscores only.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const maxIdentifierLen = 256

func validateIdentifier(kind, s string) error {
	if s == "" {
		return bridgeerr.NewValidationError(kind, "must not be empty")
	}
	if len(s) > maxIdentifierLen {
		return bridgeerr.NewValidationError(kind, fmt.Sprintf("must be at most %d bytes", maxIdentifierLen))
	}
	if !identifierPattern.MatchString(s) {
		return bridgeerr.NewValidationError(kind, fmt.Sprintf("must match %s", identifierPattern.String()))
	}
	return nil
}

// MethodName identifies a canister method.
type MethodName struct{ s string }

// NewMethodName validates s and returns a MethodName.
func NewMethodName(s string) (MethodName, error) {
	if err := validateIdentifier("method_name", s); err != nil {
		return MethodName{}, err
	}
	return MethodName{s: s}, nil
}

func (m MethodName) String() string { return m.s }

// ServerName identifies a configured MCP server exposed by the bridge.
type ServerName struct{ s string }

// NewServerName validates s and returns a ServerName.
func NewServerName(s string) (ServerName, error) {
	if err := validateIdentifier("server_name", s); err != nil {
		return ServerName{}, err
	}
	return ServerName{s: s}, nil
}

func (n ServerName) String() string { return n.s }

// ToolId identifies a tool exposed in the Canister Tool Registry.
type ToolId struct{ s string }

// NewToolId validates s and returns a ToolId.
func NewToolId(s string) (ToolId, error) {
	if err := validateIdentifier("tool_id", s); err != nil {
		return ToolId{}, err
	}
	return ToolId{s: s}, nil
}

func (t ToolId) String() string { return t.s }
