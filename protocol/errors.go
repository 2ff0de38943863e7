package protocol

import "errors"

var (
	ErrMalformedEnvelope = errors.New("malformed-envelope")
	ErrMissingKind       = errors.New("missing-kind")
	ErrUnknownKind       = errors.New("unknown-kind")
	ErrMalformedPayload  = errors.New("malformed-payload")
)
