// Package chunkmeta implements the catalog metadata codec embedded in
// every chunk file's footer: the (revision counter, transaction uuid)
// pair that lets the rebuild engine reconstruct catalog history purely
// from the chunk files themselves.
package chunkmeta

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"catalogstore/internal/columnar"
)

// MetadataKey is the well-known key under which catalog metadata is
// embedded in a chunk file's key/value metadata table.
const MetadataKey = "METADATA_KEY"

// ErrRevisionZero marks a Metadata value with the reserved, always-invalid
// revision counter 0.
var ErrRevisionZero = errors.New("chunkmeta: transaction_revision_counter must not be zero")

// Metadata is the catalog metadata embedded in a chunk file's footer.
// Serialization is a human-readable textual object (JSON) to aid
// debugging, per the on-disk layout contract.
type Metadata struct {
	TransactionRevisionCounter uint64    `json:"transaction_revision_counter"`
	TransactionUUID            uuid.UUID `json:"transaction_uuid"`
}

// Encode serializes m to its on-disk textual representation.
func Encode(m Metadata) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("chunkmeta: encode: %w", err)
	}
	return string(data), nil
}

// Decode parses the on-disk textual representation back into a Metadata
// value.
func Decode(s string) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Metadata{}, fmt.Errorf("chunkmeta: decode: %w", err)
	}
	return m, nil
}

// ErrMetadataMissing is returned by ReadFromFooter when the file has no
// METADATA_KEY entry, as distinct from a malformed value (for which Decode
// returns the underlying JSON error wrapped with fmt.Errorf).
var ErrMetadataMissing = columnar.ErrMetadataMissing

// ReadFromFooter extracts and decodes the Metadata entry from an already
// parsed footer key/value table. Absence is reported distinctly from a
// malformed value: absence returns ErrMetadataMissing (via
// columnar.MetadataValue), malformed values return the JSON decode error
// wrapped by Decode.
func ReadFromFooter(kv map[string]string) (Metadata, error) {
	raw, err := columnar.MetadataValue(kv, MetadataKey)
	if err != nil {
		return Metadata{}, err
	}
	return Decode(raw)
}

// EmbedIn returns a footer key/value table with m's encoded form set under
// MetadataKey, for use as the chunk writer's writer-properties metadata.
func EmbedIn(m Metadata) (map[string]string, error) {
	encoded, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return map[string]string{MetadataKey: encoded}, nil
}

// Validate checks the I5 invariant: transaction_revision_counter must
// never be zero.
func (m Metadata) Validate() error {
	if m.TransactionRevisionCounter == 0 {
		return ErrRevisionZero
	}
	return nil
}
