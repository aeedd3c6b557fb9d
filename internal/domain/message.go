package domain

// Operation tells a consumer what to do with a candidate's enrichment data.
type Operation string

const (
	// OpUpdate - (re)index the candidate's resume or BFQ answers.
	OpUpdate Operation = "update"
	// OpRemove - clear previously indexed enrichment data.
	OpRemove Operation = "remove"
	// OpNone - unrecognized or malformed event; callers skip it without
	// failing the batch.
	OpNone Operation = ""
)

// IndexItemMessage is the canonical record every inbound notification is
// normalized into, whether it arrived as an object-storage event or as a
// direct message from the bulk extraction fan-out.
type IndexItemMessage struct {
	Operation   Operation `json:"operation"`
	CandidateID string    `json:"candidateId"`
	ObjectKey   string    `json:"objectKey,omitempty"`
}

// MessageSourceIndexer marks queue messages produced by the bulk extraction
// path, as opposed to object-storage notifications.
const MessageSourceIndexer = "indexer"
