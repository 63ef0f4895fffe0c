// Package analytics records visits and enriches them with the visitor's country.
package analytics

import "time"

// TopicVisitRecorded carries visits awaiting geolocation.
const TopicVisitRecorded = "visit.recorded"

// VisitRecordedEvent is emitted once a visit has been persisted.
type VisitRecordedEvent struct {
	VisitID        int64     `json:"visitId"`
	LinkIdentifier string    `json:"linkIdentifier"`
	IP             string    `json:"ip"`
	RecordedAt     time.Time `json:"recordedAt"`
}
