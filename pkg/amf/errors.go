package amf

import "errors"

// Sentinel errors returned by the codec. Callers should use errors.Is to
// classify a failure; every error returned by this package wraps one of
// these via fmt.Errorf("%s: %w", op, Err...).
var (
	// ErrOutOfBounds is returned when a read would cross the end of the
	// source, including when a U29 prefix runs off the end of the stream.
	ErrOutOfBounds = errors.New("amf: read out of bounds")

	// ErrBadReference is returned when a back-reference index falls
	// outside the bounds of the relevant reference table.
	ErrBadReference = errors.New("amf: reference index out of range")

	// ErrBadMarker is returned when a marker byte is unrecognized for the
	// active AMF version.
	ErrBadMarker = errors.New("amf: unrecognized marker")

	// ErrRangeError is returned when a value exceeds the range the AMF3
	// variable-length integer can carry ([-2^28, 2^28-1]).
	ErrRangeError = errors.New("amf: value out of U29 range")

	// ErrTypeError is returned when property injection targets an object
	// that has neither a matching setter nor index-assignment support.
	ErrTypeError = errors.New("amf: cannot assign property")

	// ErrUnsupported is returned when an externalizable object has no
	// registered external reader/writer.
	ErrUnsupported = errors.New("amf: unsupported externalizable type")

	// ErrArgError is returned for invalid public API arguments, such as an
	// AMF version other than 0 or 3.
	ErrArgError = errors.New("amf: invalid argument")
)
