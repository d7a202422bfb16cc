package bus

// ApplyToJob asks the candidate side to open an application for a job.
type ApplyToJob struct {
	JobID    string
	JobTitle string
}

// MutationFailed is published once per optimistic mutation whose remote call
// failed, after the local state was rolled back or refetched.
type MutationFailed struct {
	Kind     string // "update" or "reorder"
	RecordID string
	Err      error
}

// Refreshed is published after an entity store finished a fetch.
type Refreshed struct {
	Collection string
	Total      int
	Err        error
}

// Hub groups the topics shared by the pages of one client session.
type Hub struct {
	ApplyToJob     *Topic[ApplyToJob]
	MutationFailed *Topic[MutationFailed]
	Refreshed      *Topic[Refreshed]
}

// NewHub returns a hub with empty topics.
func NewHub() *Hub {
	return &Hub{
		ApplyToJob:     NewTopic[ApplyToJob](),
		MutationFailed: NewTopic[MutationFailed](),
		Refreshed:      NewTopic[Refreshed](),
	}
}
