package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"catalogstore/internal/catalogstate"
	"catalogstore/internal/objectstore"
)

// transactionRecord is the on-disk, JSON-serialized contents of one
// transaction object. Like the embedded chunk metadata, it is kept
// human-readable to aid debugging.
type transactionRecord struct {
	RevisionCounter uint64         `json:"revision_counter"`
	UUID            uuid.UUID      `json:"uuid"`
	PreviousUUID    *uuid.UUID     `json:"previous_uuid,omitempty"`
	Actions         []actionRecord `json:"actions"`
}

// actionRecord is one staged action. Only add-chunk is modelled; removals
// are never recorded, and applyActions rejects any other kind.
type actionRecord struct {
	Kind    string   `json:"kind"` // always "add-chunk"
	Key     []string `json:"key"`
	NumRows int64    `json:"num_rows"`
}

const actionKindAddChunk = "add-chunk"

func encodeRecord(r transactionRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode transaction record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (transactionRecord, error) {
	var r transactionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return transactionRecord{}, fmt.Errorf("catalog: decode transaction record: %w", err)
	}
	return r, nil
}

func actionsFrom(actions []stagedAction) []actionRecord {
	out := make([]actionRecord, len(actions))
	for i, a := range actions {
		out[i] = actionRecord{Kind: actionKindAddChunk, Key: []string(a.Key), NumRows: a.Summary.NumRows}
	}
	return out
}

func applyActions(state catalogstate.State, actions []actionRecord) error {
	for _, a := range actions {
		if a.Kind != actionKindAddChunk {
			return fmt.Errorf("catalog: unknown action kind %q", a.Kind)
		}
		key := objectstore.Path(a.Key)
		if err := state.Add(key, catalogstate.FileFooterSummary{NumRows: a.NumRows}); err != nil {
			return fmt.Errorf("catalog: replay add %s: %w", key, err)
		}
	}
	return nil
}
