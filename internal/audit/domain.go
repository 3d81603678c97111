package audit

import "time"

// EventKind classifies audit entries.
type EventKind string

const (
	// KindDenied records a refused authorization decision.
	KindDenied EventKind = "authz.denied"
	// KindTransition records an applied check-state transition.
	KindTransition EventKind = "workflow.transition"
)

// Event is one audit log entry. Entity carries "site:channel:content"
// style identifiers so the timeline can be filtered per scope.
type Event struct {
	ID        int64     `json:"id"`
	Kind      EventKind `json:"kind"`
	ActorKey  string    `json:"actorKey"`
	SiteID    int64     `json:"siteId"`
	ChannelID int64     `json:"channelId,omitempty"`
	ContentID int64     `json:"contentId,omitempty"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// TimelineFilters narrows the audit timeline.
type TimelineFilters struct {
	Kind     EventKind
	SiteID   int64
	ActorKey string
	From     time.Time
	To       time.Time
	Page     int32
	PageSize int32
}

// PagingInfo reports the paging window of a timeline result.
type PagingInfo struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"pageSize"`
	HasNext  bool  `json:"hasNext"`
}

// Result bundles timeline rows with their paging window.
type Result struct {
	Rows   []Event    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
