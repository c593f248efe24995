// Package transfer is the bulk import/export gateway: it turns the whole
// record set into a portable, human-diffable text document and back.
// Import is a restore, not a merge; callers replace their set wholesale.
package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/fintrack/fintrack/internal/domain/model"
)

// Export renders the record set as pretty-printed UTF-8 JSON with 2-space
// indentation. Top-level keys are YYYY-MM strings; Go's map marshaling sorts
// them, which for valid month keys is chronological order.
func Export(set model.RecordSet) ([]byte, error) {
	if set == nil {
		set = model.RecordSet{}
	}
	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export record set: %w", err)
	}
	return append(b, '\n'), nil
}

// Import parses a document produced by Export or a hand-authored equivalent.
// The top level must be a key-to-record object mapping; anything else fails
// with ErrMalformedDocument and no partial result. Field-level numeric junk
// inside records is tolerated and coerced to zero by the model types.
func Import(data []byte) (model.RecordSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedDocument)
	}

	set := make(model.RecordSet, len(raw))
	for key, msg := range raw {
		var rec model.MonthlyRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, fmt.Errorf("%w: entry %q is not a record", ErrMalformedDocument, key)
		}
		set[key] = rec
	}
	return set, nil
}
