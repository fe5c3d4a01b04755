package dnsmsg

import "errors"

// Error kinds produced by the DNS name decoder and message parser. All of
// them are recovered at the message boundary: a rejected message is
// reported to the classifier as "no message", never as a crash or a
// propagated error up the call stack.
var (
	ErrTruncatedPayload = errors.New("dnsmsg: truncated payload")
	ErrCountTooLarge    = errors.New("dnsmsg: question or answer count too large")
	ErrUnknownClass     = errors.New("dnsmsg: unknown rr class")
	ErrTruncatedLabel   = errors.New("dnsmsg: truncated label")
	ErrOffsetOutOfRange = errors.New("dnsmsg: compression pointer offset out of range")
	ErrRecursivePointer = errors.New("dnsmsg: recursive compression pointer")
	ErrBadRdata         = errors.New("dnsmsg: bad rdata")

	// errEmptyMessage covers the "both counts zero" rejection. It is not
	// one of the named error kinds above (those cover malformed wire data;
	// an all-zero-count message is well-formed but semantically empty), so
	// it is kept package-private to the reject path rather than exported
	// as part of the error catalog.
	errEmptyMessage = errors.New("dnsmsg: empty message")

	// ErrUnknownType is exported for error-catalog completeness. DNSData.Type
	// is documented as pass-through-numeric for any value the core does not
	// specially decode, so the current wire table never returns it — see
	// DESIGN.md's resolution of the question-decode "unknown type" ambiguity.
	ErrUnknownType = errors.New("dnsmsg: unknown rr type")
)
