package indexer

// State is a stage of document ingestion.
type State string

const (
	StateUploaded      State = "uploaded"
	StateTextExtracted State = "text_extracted"
	StateChunked       State = "chunked"
	StateEmbedded      State = "embedded"
	StateStored        State = "stored"
	StateFailed        State = "failed"
)
