package domain

// Doc is a partial candidate document sent to the search indices.
// Producers fill only the fields they own; the metadata index merges
// partials by candidateId and an explicit nil clears a field.
type Doc map[string]any

// FieldCandidateID is the document key field present in every Doc.
const FieldCandidateID = "candidateId"

// CandidateID returns the document key, or "" when absent.
func (d Doc) CandidateID() string {
	id, _ := d[FieldCandidateID].(string)
	return id
}

// Merge returns a copy of d with fields from other layered on top.
// Used by the vector index reconciliation to carry stored metadata forward.
func (d Doc) Merge(other Doc) Doc {
	out := make(Doc, len(d)+len(other))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
