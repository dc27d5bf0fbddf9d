// Package wire implements the Wire Codec (spec §4.A): encoding of typed
// argument tuples to the canister's binary ABI, and decoding of its
// tagged Success(T)|Failure(text) result shape, with a fallback to a bare
// payload when the tagged shape doesn't parse. Grounded on the teacher's
// JSON-RPC envelope handling in pkg/jsonrpc and pkg/mcp/stdio.go's
// call()/readResponses() request/response framing, adapted from a JSON
// wire to this spec's binary one.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
)

// Kind tags the type of an encoded Value.
type Kind uint8

const (
	KindText Kind = iota
	KindNat64
	KindInt64
	KindBool
	KindBytes
	KindPrincipal
	KindVector
	KindOption
	KindRecord
)

// Value is a typed argument or result fragment in the wire ABI.
type Value struct {
	Kind      Kind
	Text      string
	Nat64     uint64
	Int64     int64
	Bool      bool
	Bytes     []byte
	Principal ids.Principal
	Vector    []Value
	Option    *Value // nil means None
	Record    map[string]Value
}

// Text, Nat64, Int64, Bool, etc. build Values of the matching kind.
func TextValue(s string) Value           { return Value{Kind: KindText, Text: s} }
func Nat64Value(v uint64) Value          { return Value{Kind: KindNat64, Nat64: v} }
func Int64Value(v int64) Value           { return Value{Kind: KindInt64, Int64: v} }
func BoolValue(v bool) Value             { return Value{Kind: KindBool, Bool: v} }
func BytesValue(b []byte) Value          { return Value{Kind: KindBytes, Bytes: b} }
func PrincipalValue(p ids.Principal) Value { return Value{Kind: KindPrincipal, Principal: p} }
func VectorValue(vs []Value) Value       { return Value{Kind: KindVector, Vector: vs} }
func SomeValue(v Value) Value            { return Value{Kind: KindOption, Option: &v} }
func NoneValue() Value                   { return Value{Kind: KindOption, Option: nil} }
func RecordValue(fields map[string]Value) Value {
	return Value{Kind: KindRecord, Record: fields}
}

// EncodeTuple encodes an ordered sequence of Values into the canister's
// length-prefixed, tagged binary ABI.
func EncodeTuple(vals []Value) ([]byte, error) {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(vals)))
	for _, v := range vals {
		if err := encodeValue(&buf, v); err != nil {
			return nil, &bridgeerr.ProtocolEncode{Cause: err}
		}
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindText:
		writeBytes(buf, []byte(v.Text))
	case KindNat64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], v.Nat64)
		buf.Write(tmp[:])
	case KindInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.Int64))
		buf.Write(tmp[:])
	case KindBool:
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindBytes:
		writeBytes(buf, v.Bytes)
	case KindPrincipal:
		writeBytes(buf, v.Principal.Bytes())
	case KindVector:
		writeUvarint(buf, uint64(len(v.Vector)))
		for _, elem := range v.Vector {
			if err := encodeValue(buf, elem); err != nil {
				return err
			}
		}
	case KindOption:
		if v.Option == nil {
			buf.WriteByte(0)
		} else {
			buf.WriteByte(1)
			if err := encodeValue(buf, *v.Option); err != nil {
				return err
			}
		}
	case KindRecord:
		writeUvarint(buf, uint64(len(v.Record)))
		for name, field := range v.Record {
			writeBytes(buf, []byte(name))
			if err := encodeValue(buf, field); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

// DecodeTuple decodes bytes produced by EncodeTuple back into the ordered
// sequence of Values, used by internal/stablestore to round-trip typed
// values through stable memory with the same codec the C-RPC argument
// side uses.
func DecodeTuple(data []byte) ([]Value, error) {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, &bridgeerr.ProtocolDecode{Cause: err}
	}
	vals := make([]Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := decodeValue(r)
		if err != nil {
			return nil, &bridgeerr.ProtocolDecode{Cause: err}
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func decodeValue(r *bytes.Reader) (Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	kind := Kind(kindByte)
	switch kind {
	case KindText:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return TextValue(string(b)), nil
	case KindNat64:
		var tmp [8]byte
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return Value{}, err
		}
		return Nat64Value(binary.BigEndian.Uint64(tmp[:])), nil
	case KindInt64:
		var tmp [8]byte
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return Value{}, err
		}
		return Int64Value(int64(binary.BigEndian.Uint64(tmp[:]))), nil
	case KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	case KindBytes:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		return BytesValue(b), nil
	case KindPrincipal:
		b, err := readBytes(r)
		if err != nil {
			return Value{}, err
		}
		p, err := ids.NewPrincipal(b)
		if err != nil {
			return Value{}, err
		}
		return PrincipalValue(p), nil
	case KindVector:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			elem, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return VectorValue(elems), nil
	case KindOption:
		tag, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		if tag == 0 {
			return NoneValue(), nil
		}
		inner, err := decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		return SomeValue(inner), nil
	case KindRecord:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return Value{}, err
		}
		fields := make(map[string]Value, n)
		for i := uint64(0); i < n; i++ {
			nameBytes, err := readBytes(r)
			if err != nil {
				return Value{}, err
			}
			field, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			fields[string(nameBytes)] = field
		}
		return RecordValue(fields), nil
	default:
		return Value{}, fmt.Errorf("unknown value kind %d", kind)
	}
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// taggedResult mirrors the canister's Success(T)|Failure(text) shape,
// carried over the wire as JSON so the bridge can parse the success
// payload without a second round of binary decoding (the canister's ABI
// terminates in a JSON-encoded text blob for the result body per §4.D).
type taggedResult struct {
	Success *json.RawMessage `json:"success,omitempty"`
	Failure *string          `json:"failure,omitempty"`
}

// DecodeResult decodes a canister call's raw response bytes. It first
// tries the tagged Success/Failure shape; on failure to parse that shape
// it falls back to treating the payload as the bare JSON result. A decode
// that fails both yields bridgeerr.ProtocolDecode.
func DecodeResult(raw []byte) (json.RawMessage, error) {
	var tagged taggedResult
	if err := json.Unmarshal(raw, &tagged); err == nil {
		if tagged.Failure != nil {
			return nil, fmt.Errorf("canister call failed: %s", *tagged.Failure)
		}
		if tagged.Success != nil {
			return *tagged.Success, nil
		}
	}

	var bare json.RawMessage
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, &bridgeerr.ProtocolDecode{Cause: err}
	}
	return bare, nil
}
