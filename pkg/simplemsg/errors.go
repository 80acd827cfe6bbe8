// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import "errors"

// DecodeErrorKind classifies decode failures
type DecodeErrorKind int

const (
	// DecodeTruncated indicates fewer bytes than MessageSize
	DecodeTruncated DecodeErrorKind = iota
	// DecodeUnknownMessageType indicates an unrecognised header message type
	DecodeUnknownMessageType
	// DecodeGroupCountOutOfRange indicates number_of_valid_groups outside 0..MaxGroups
	DecodeGroupCountOutOfRange
	// DecodeLengthMismatch indicates a length prefix other than PayloadLength
	DecodeLengthMismatch
)

// String returns the kind name
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeTruncated:
		return "truncated"
	case DecodeUnknownMessageType:
		return "unknown_message_type"
	case DecodeGroupCountOutOfRange:
		return "group_count_out_of_range"
	case DecodeLengthMismatch:
		return "length_mismatch"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode for malformed input
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return e.Msg
}

// IsDecodeError reports whether err is a *DecodeError of the given kind
func IsDecodeError(err error, kind DecodeErrorKind) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Kind == kind
	}
	return false
}
