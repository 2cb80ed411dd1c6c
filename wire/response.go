// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueKind discriminates the value carried by a [ResponsePayload].
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueFloat
	ValueInt
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueFloat:
		return "float"
	case ValueInt:
		return "int"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Value is the tagged value of a response.
type Value struct {
	kind ValueKind
	bits uint32
}

// FloatValue returns a float-kind value.
func FloatValue(v float32) Value { return Value{kind: ValueFloat, bits: math.Float32bits(v)} }

// IntValue returns an int-kind value.
func IntValue(v int32) Value { return Value{kind: ValueInt, bits: uint32(v)} }

// Kind returns the discriminant.
func (v Value) Kind() ValueKind { return v.kind }

// Float returns the value if it is float-kind.
func (v Value) Float() (float32, bool) {
	if v.kind != ValueFloat {
		return 0, false
	}
	return math.Float32frombits(v.bits), true
}

// Int returns the value if it is int-kind.
func (v Value) Int() (int32, bool) {
	if v.kind != ValueInt {
		return 0, false
	}
	return int32(v.bits), true
}

// ResponsePayload answers exactly one request. ErrorMessage is only
// meaningful when Success is false.
type ResponsePayload struct {
	Success      bool
	ErrorMessage string
	Value        Value
}

// Succeeded returns a successful response with no value.
func Succeeded() ResponsePayload { return ResponsePayload{Success: true} }

// SucceededWith returns a successful response carrying value.
func SucceededWith(value Value) ResponsePayload {
	return ResponsePayload{Success: true, Value: value}
}

// Failed returns an unsuccessful response. message is truncated to fit
// the fixed error buffer.
func Failed(message string) ResponsePayload {
	return ResponsePayload{ErrorMessage: message}
}

// Failedf is [Failed] with formatting.
func Failedf(format string, args ...any) ResponsePayload {
	return Failed(fmt.Sprintf(format, args...))
}

func (ResponsePayload) Type() MessageType { return Response }
func (ResponsePayload) encodedSize() int  { return ResponseSize }
func (p ResponsePayload) appendTo(buffer []byte) []byte {
	var success byte
	if p.Success {
		success = 1
	}
	buffer = append(buffer, success, byte(p.Value.kind), 0, 0)
	buffer = binary.LittleEndian.AppendUint32(buffer, p.Value.bits)
	return appendFixedString(buffer, p.ErrorMessage, ErrorMessageSize)
}

// DecodeResponse decodes a 264-byte Response body.
func DecodeResponse(body []byte) (ResponsePayload, error) {
	if len(body) != ResponseSize {
		return ResponsePayload{}, &FormatError{Type: Response, Reason: fmt.Sprintf("body is %d bytes, want %d", len(body), ResponseSize)}
	}
	if body[0] > 1 {
		return ResponsePayload{}, &FormatError{Type: Response, Reason: fmt.Sprintf("success flag is %d", body[0])}
	}
	kind := ValueKind(body[1])
	if kind > ValueInt {
		return ResponsePayload{}, &FormatError{Type: Response, Reason: fmt.Sprintf("unknown value kind %d", body[1])}
	}
	message, err := decodeFixedString(Response, body[8:])
	if err != nil {
		return ResponsePayload{}, err
	}
	response := ResponsePayload{
		Success:      body[0] == 1,
		ErrorMessage: message,
	}
	if kind != ValueNone {
		response.Value = Value{kind: kind, bits: binary.LittleEndian.Uint32(body[4:8])}
	}
	return response, nil
}
