package packet

import "errors"

// Errors
var (
	ErrRoutingFull     = errors.New("packet: routing trailer full")
	ErrRoutingEmpty    = errors.New("packet: routing trailer empty")
	ErrPayloadTooLarge = errors.New("packet: payload too large")
	ErrPacketTooLarge  = errors.New("packet: packet exceeds maximum size")
	ErrShortBuffer     = errors.New("packet: buffer too small")
	ErrMalformedPath   = errors.New("packet: malformed routing path")
	ErrTooManyHops     = errors.New("packet: too many hops")
	ErrTruncated       = errors.New("packet: truncated data")
	ErrSizeMismatch    = errors.New("packet: size does not match header")
)

// Registry errors
var (
	ErrInvalidTypeID     = errors.New("packet: invalid type ID: 0 is reserved")
	ErrTypeAlreadyExists = errors.New("packet: type with this ID already exists")
	ErrTypeOutOfRange    = errors.New("packet: type ID outside the user range")
	ErrTypeNameExists    = errors.New("packet: type name already registered")
)
