// Package schemamap implements the Tool Schema Mapper (spec §4.E):
// translating a JSON-RPC tools/call argument object into the ordered
// wire.Value tuple a canister method expects. Tool/CanisterMetadata
// shapes are grounded directly on the teacher's pkg/mcp/types.go
// Tool/InputSchemaObject/Property (same field names, json tags, and
// omitempty placement). The encode fallback ladder is grounded in the
// teacher's multi-transport transporter interface dispatch in
// pkg/mcp/client_base.go (try the concrete transport, degrade
// predictably) and its OpenAPI client's schema-driven request building
// in pkg/mcp/openapi_client.go.
package schemamap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
	"github.com/icarus-mcp/icarus-bridge/internal/wire"
)

// ArgStyle selects how a tool's JSON arguments map onto the canister's
// positional wire.Value tuple.
type ArgStyle string

const (
	// StylePositional reads "x-icarus-params" for an explicit parameter
	// order and type list.
	StylePositional ArgStyle = "positional"
	// StyleRecord passes the whole argument object as one wire.Record.
	StyleRecord ArgStyle = "record"
	// StyleEmpty means the tool takes no arguments.
	StyleEmpty ArgStyle = "empty"
)

// ParamSpec describes one positional parameter, taken from the tool's
// "x-icarus-params" schema extension.
type ParamSpec struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "nat64" | "int64" | "bool" | "bytes" | "principal"
}

// Tool is a canister-exposed tool descriptor, field-for-field the same
// shape as the teacher's pkg/mcp/types.go Tool.
type Tool struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolDescriptor is Tool plus the bridge-internal fields needed to encode
// a call: its resolved arg style and, for StylePositional, the parameter
// order.
type ToolDescriptor struct {
	Tool
	Style  ArgStyle
	Params []ParamSpec
}

// CanisterMetadata is the parsed result of a canister's list_tools call.
// Tools is preallocated at capacity 8: "<=8 inline allocation is typical"
// for a single bridge's tool catalog, grown beyond that transparently.
type CanisterMetadata struct {
	Tools []ToolDescriptor
}

// inputSchemaExtension is the subset of a tool's inputSchema this package
// reads to resolve ArgStyle and, for positional tools, parameter order.
type inputSchemaExtension struct {
	Type       string                     `json:"type"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	IcarusParams []ParamSpec              `json:"x-icarus-params,omitempty"`
}

// ResolveStyle infers a tool's ArgStyle from its input schema when
// "x-icarus-params" is absent: a schema with no properties is Empty; a
// schema with properties but no explicit param list is Record.
func ResolveStyle(tool Tool) (ArgStyle, []ParamSpec, error) {
	if len(tool.InputSchema) == 0 {
		return StyleEmpty, nil, nil
	}
	var ext inputSchemaExtension
	if err := json.Unmarshal(tool.InputSchema, &ext); err != nil {
		return "", nil, fmt.Errorf("parsing input schema for %q: %w", tool.Name, err)
	}
	if len(ext.IcarusParams) > 0 {
		return StylePositional, ext.IcarusParams, nil
	}
	if len(ext.Properties) == 0 {
		return StyleEmpty, nil, nil
	}
	return StyleRecord, nil, nil
}

// validateInputSchema checks that a tool's inputSchema, when present, is a
// structurally valid JSON Schema fragment, using kin-openapi's
// openapi3.Schema validator the way the teacher's OpenAPIClient validates
// operation schemas before converting them to tools.
func validateInputSchema(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var schema openapi3.Schema
	if err := schema.UnmarshalJSON(raw); err != nil {
		return fmt.Errorf("inputSchema is not valid JSON: %w", err)
	}
	if err := schema.Validate(context.Background()); err != nil {
		return fmt.Errorf("inputSchema is not a valid JSON Schema: %w", err)
	}
	return nil
}

// NewToolDescriptor validates a tool's inputSchema and builds a
// ToolDescriptor, resolving its ArgStyle.
func NewToolDescriptor(tool Tool) (ToolDescriptor, error) {
	if err := validateInputSchema(tool.InputSchema); err != nil {
		return ToolDescriptor{}, fmt.Errorf("tool %q: %w", tool.Name, err)
	}
	style, params, err := ResolveStyle(tool)
	if err != nil {
		return ToolDescriptor{}, err
	}
	return ToolDescriptor{Tool: tool, Style: style, Params: params}, nil
}

// ParseCanisterMetadata parses a list_tools JSON catalog.
func ParseCanisterMetadata(data []byte) (CanisterMetadata, error) {
	var raw struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return CanisterMetadata{}, fmt.Errorf("parsing canister tool catalog: %w", err)
	}
	descriptors := make([]ToolDescriptor, 0, 8)
	for _, t := range raw.Tools {
		d, err := NewToolDescriptor(t)
		if err != nil {
			return CanisterMetadata{}, err
		}
		descriptors = append(descriptors, d)
	}
	return CanisterMetadata{Tools: descriptors}, nil
}

// encodeStrategy is one attempt in the fallback ladder: it either
// produces an argument tuple or declines by returning an error.
type encodeStrategy func(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error)

// Encode maps a tool call's JSON arguments onto the canister's ordered
// wire.Value tuple, dispatching on Style. When Style is unset it does not
// infer one; it tries the fallback ladder below instead.
func Encode(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	switch tool.Style {
	case StyleEmpty:
		return nil, nil
	case StylePositional:
		return encodePositional(tool, args)
	case StyleRecord:
		return encodeRecord(tool, args)
	}

	// Style wasn't resolved; try the fallback ladder in order, keeping
	// only the last error if every strategy declines.
	strategies := []encodeStrategy{encodePositionalAllText, encodeSingleScalar, encodeWholeJSONAsText}
	var lastErr error
	for _, strategy := range strategies {
		vals, err := strategy(tool, args)
		if err == nil {
			return vals, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no encoding strategy matched tool %q: %w", tool.Name, lastErr)
}

func encodePositional(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(args, &obj); err != nil {
		return nil, fmt.Errorf("decoding arguments for %q: %w", tool.Name, err)
	}
	vals := make([]wire.Value, 0, len(tool.Params))
	for _, p := range tool.Params {
		raw, ok := obj[p.Name]
		if !ok {
			return nil, fmt.Errorf("missing required argument %q for tool %q", p.Name, tool.Name)
		}
		v, err := decodeTyped(p.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q for tool %q: %w", p.Name, tool.Name, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func encodeRecord(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(args, &obj); err != nil {
		return nil, fmt.Errorf("decoding arguments for %q: %w", tool.Name, err)
	}
	fields := make(map[string]wire.Value, len(obj))
	for k, raw := range obj {
		v, err := inferValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q for tool %q: %w", k, tool.Name, err)
		}
		fields[k] = v
	}
	return []wire.Value{wire.RecordValue(fields)}, nil
}

// encodePositionalAllText is the first fallback: treat every JSON object
// field as text, ordered alphabetically by key for determinism.
func encodePositionalAllText(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(args, &obj); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]wire.Value, 0, len(keys))
	for _, k := range keys {
		var s string
		if err := json.Unmarshal(obj[k], &s); err != nil {
			return nil, fmt.Errorf("field %q is not text: %w", k, err)
		}
		vals = append(vals, wire.TextValue(s))
	}
	return vals, nil
}

// encodeSingleScalar is the second fallback: the arguments are a bare
// JSON scalar (no object wrapper).
func encodeSingleScalar(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	v, err := inferValue(args)
	if err != nil {
		return nil, err
	}
	if v.Kind == wire.KindRecord {
		return nil, fmt.Errorf("arguments are an object, not a scalar")
	}
	return []wire.Value{v}, nil
}

// encodeWholeJSONAsText is the last-resort fallback: pass the raw JSON
// text through unmodified.
func encodeWholeJSONAsText(tool ToolDescriptor, args json.RawMessage) ([]wire.Value, error) {
	return []wire.Value{wire.TextValue(string(args))}, nil
}

func decodeTyped(paramType string, raw json.RawMessage) (wire.Value, error) {
	switch paramType {
	case "text":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return wire.Value{}, err
		}
		return wire.TextValue(s), nil
	case "nat64":
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return wire.Value{}, err
		}
		return wire.Nat64Value(n), nil
	case "int64":
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return wire.Value{}, err
		}
		return wire.Int64Value(n), nil
	case "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return wire.Value{}, err
		}
		return wire.BoolValue(b), nil
	case "bytes":
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return wire.Value{}, err
		}
		return wire.BytesValue(b), nil
	case "principal":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return wire.Value{}, err
		}
		p, err := ids.ParsePrincipalText(s)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.PrincipalValue(p), nil
	default:
		return wire.Value{}, fmt.Errorf("unknown parameter type %q", paramType)
	}
}

// inferValue maps a bare JSON value onto the closest wire.Value kind
// without a declared schema type: strings to text, bools to bool,
// numbers to int64, objects to records, everything else is rejected.
func inferValue(raw json.RawMessage) (wire.Value, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return wire.TextValue(asString), nil
	}
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return wire.BoolValue(asBool), nil
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return wire.Int64Value(asNumber), nil
	}
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		fields := make(map[string]wire.Value, len(asObject))
		for k, v := range asObject {
			fv, err := inferValue(v)
			if err != nil {
				return wire.Value{}, err
			}
			fields[k] = fv
		}
		return wire.RecordValue(fields), nil
	}
	return wire.Value{}, fmt.Errorf("cannot infer a wire type for %s", string(raw))
}
