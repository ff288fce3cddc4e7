package transform

import (
	"encoding/json"

	"newton/internal/workflowgraph/state"
)

// cloneDocument returns a deep copy of doc via a JSON round-trip, so each
// pipeline stage can treat its input as immutable without separately
// writing a field-by-field deep-copy for every nested struct.
func cloneDocument(doc *state.WorkflowDocument) (*state.WorkflowDocument, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out state.WorkflowDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// cloneValue deep-copies a JSON-shaped interface{} tree (map/slice/scalar)
// via a JSON round-trip.
func cloneValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
