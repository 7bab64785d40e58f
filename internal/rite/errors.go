package rite

import "errors"

// Structural failures. Any of these aborts Decode and no partial File is returned.
var (
	ErrMalformedContainer = errors.New("malformed container")
	ErrTruncatedSection   = errors.New("truncated section")
	ErrSizeMismatch       = errors.New("size mismatch")
	ErrUnknownSection     = errors.New("unknown section")
	ErrOutOfOrderSection  = errors.New("out of order section")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedContainer, "MalformedContainer"},
	{ErrTruncatedSection, "TruncatedSection"},
	{ErrSizeMismatch, "SizeMismatch"},
	{ErrUnknownSection, "UnknownSection"},
	{ErrOutOfOrderSection, "OutOfOrderSection"},
	{ErrChecksumMismatch, "ChecksumMismatch"},
}

// KindOf returns the kind tag of a structural error, or "" if err carries none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
