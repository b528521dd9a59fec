package models

// ImportEventKind tells what changed in a project's transaction set.
type ImportEventKind string

const (
	ImportCompleted ImportEventKind = "import_completed"
	UploadRemoved   ImportEventKind = "upload_removed"
)

// ImportEvent is published by the ingestion pipeline whenever the stored
// transactions of a project change.
type ImportEvent struct {
	EventID    string          `json:"event_id"`
	ProjectID  int64           `json:"project_id"`
	Kind       ImportEventKind `json:"kind"`
	UploadID   string          `json:"upload_id,omitempty"`
	// RFC3339 or unix seconds, depending on the producer.
	OccurredAt string          `json:"occurred_at,omitempty"`
}

// WarmupPayload asks a worker to precompute the default window of a project.
type WarmupPayload struct {
	ProjectID int64 `json:"project_id"`
	Days      int   `json:"days"`
}
