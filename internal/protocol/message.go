package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// codeKey is the reserved struct field carrying the message code.
const codeKey = "code"

// ErrMalformed covers protocol-level bad input: missing fields, wrong field
// types, or an undecodable payload. Handlers answer these with an invalid-X
// code and keep the session alive.
var ErrMalformed = errors.New("malformed message")

// Message is one wire message: a code plus a string-keyed map of typed
// values. On the wire it is a protobuf-encoded Struct.
type Message struct {
	Code   Code
	fields map[string]*structpb.Value
}

// New constructs an empty message with the given code.
func New(code Code) *Message {
	return &Message{Code: code, fields: make(map[string]*structpb.Value)}
}

// SetString sets a string field and returns the message for chaining.
func (m *Message) SetString(key, v string) *Message {
	m.fields[key] = structpb.NewStringValue(v)
	return m
}

// SetInt sets an integer field.
func (m *Message) SetInt(key string, v int64) *Message {
	m.fields[key] = structpb.NewNumberValue(float64(v))
	return m
}

// SetBool sets a boolean field.
func (m *Message) SetBool(key string, v bool) *Message {
	m.fields[key] = structpb.NewBoolValue(v)
	return m
}

// SetInts sets an integer-list field.
func (m *Message) SetInts(key string, vs []int32) *Message {
	vals := make([]*structpb.Value, len(vs))
	for i, v := range vs {
		vals[i] = structpb.NewNumberValue(float64(v))
	}
	m.fields[key] = structpb.NewListValue(&structpb.ListValue{Values: vals})
	return m
}

// SetStrings sets a string-list field.
func (m *Message) SetStrings(key string, vs []string) *Message {
	vals := make([]*structpb.Value, len(vs))
	for i, v := range vs {
		vals[i] = structpb.NewStringValue(v)
	}
	m.fields[key] = structpb.NewListValue(&structpb.ListValue{Values: vals})
	return m
}

// GetString extracts a string field or reports the message malformed.
func (m *Message) GetString(key string) (string, error) {
	v, ok := m.fields[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	sv, ok := v.Kind.(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformed, key)
	}
	return sv.StringValue, nil
}

// GetInt extracts an integer field or reports the message malformed.
func (m *Message) GetInt(key string) (int64, error) {
	v, ok := m.fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	nv, ok := v.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not a number", ErrMalformed, key)
	}
	return int64(nv.NumberValue), nil
}

// GetBool extracts a boolean field or reports the message malformed.
func (m *Message) GetBool(key string) (bool, error) {
	v, ok := m.fields[key]
	if !ok {
		return false, fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	bv, ok := v.Kind.(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: field %q is not a boolean", ErrMalformed, key)
	}
	return bv.BoolValue, nil
}

// GetInts extracts an integer-list field or reports the message malformed.
func (m *Message) GetInts(key string) ([]int32, error) {
	v, ok := m.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	lv, ok := v.Kind.(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a list", ErrMalformed, key)
	}
	out := make([]int32, 0, len(lv.ListValue.Values))
	for i, item := range lv.ListValue.Values {
		nv, ok := item.Kind.(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: field %q element %d is not a number", ErrMalformed, key, i)
		}
		out = append(out, int32(nv.NumberValue))
	}
	return out, nil
}

// Encode serializes the message to its wire payload.
func (m *Message) Encode() ([]byte, error) {
	fields := make(map[string]*structpb.Value, len(m.fields)+1)
	for k, v := range m.fields {
		fields[k] = v
	}
	fields[codeKey] = structpb.NewNumberValue(float64(m.Code))
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// Decode parses a wire payload into a Message.
func Decode(payload []byte) (*Message, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	fields := st.Fields
	if fields == nil {
		fields = map[string]*structpb.Value{}
	}
	codeVal, ok := fields[codeKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing code", ErrMalformed)
	}
	nv, ok := codeVal.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return nil, fmt.Errorf("%w: code is not a number", ErrMalformed)
	}
	delete(fields, codeKey)
	return &Message{Code: Code(nv.NumberValue), fields: fields}, nil
}

func (m *Message) String() string {
	return fmt.Sprintf("%v(%d fields)", m.Code, len(m.fields))
}
