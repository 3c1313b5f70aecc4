// Package record defines the on-disk representation of an HSTS policy
// record shared by the persistent Store implementations.
package record

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lestrrat-go/hsts"
)

// Record is a policy together with its absolute expiry.
type Record struct {
	// ExpiresAt is the expiry in microseconds since the Unix epoch.
	ExpiresAt         int64 `cbor:"1,keyasint"`
	MaxAge            int64 `cbor:"2,keyasint"`
	IncludeSubDomains bool  `cbor:"3,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: failed to create CBOR encoding mode: %v", err))
	}
	encMode = mode
}

// New creates the record for policy declared at now.
func New(now time.Time, policy hsts.Policy) Record {
	return Record{
		ExpiresAt:         hsts.ExpiresAt(now, policy.MaxAge).UnixMicro(),
		MaxAge:            policy.MaxAge,
		IncludeSubDomains: policy.IncludeSubDomains,
	}
}

// Expiry returns the absolute expiry of the record.
func (r Record) Expiry() time.Time {
	return time.UnixMicro(r.ExpiresAt)
}

// Expired reports whether the record is no longer valid at now.
func (r Record) Expired(now time.Time) bool {
	return !r.Expiry().After(now)
}

// Policy returns the policy carried by the record.
func (r Record) Policy() hsts.Policy {
	return hsts.Policy{
		MaxAge:            r.MaxAge,
		IncludeSubDomains: r.IncludeSubDomains,
	}
}

// Marshal encodes the record as deterministic CBOR.
func Marshal(r Record) ([]byte, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("record: failed to encode: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a record previously encoded by Marshal.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("record: failed to decode: %w", err)
	}
	return r, nil
}
