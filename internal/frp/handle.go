package frp

import "github.com/google/uuid"

// Handle identifies a subscriber within a stream. It is an opaque 128-bit
// value; NewHandle draws it from a random UUIDv4.
type Handle [16]byte

// NewHandle returns a random handle.
func NewHandle() Handle {
	return Handle(uuid.New())
}

// HandleFromUUID converts a UUID into a handle. Entities use this to derive
// observer handles from their own id.
func HandleFromUUID(id uuid.UUID) Handle {
	return Handle(id)
}

// String returns the hyphenated hex form.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}
