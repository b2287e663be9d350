package domain

import (
	"encoding/json"
	"time"
)

// ChangeType is the kind of row change carried by a ChangeEvent.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one insert/update/delete on the inquiries table as delivered by a
// change source. New and Old hold raw records so that a malformed payload only
// fails the event it belongs to.
type ChangeEvent struct {
	Type            ChangeType      `json:"event_type"`
	Table           string          `json:"table"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// NewInquiryChange builds a ChangeEvent for inq. For deletes only Old is set.
func NewInquiryChange(t ChangeType, inq *Inquiry) (ChangeEvent, error) {
	raw, err := json.Marshal(inq)
	if err != nil {
		return ChangeEvent{}, err
	}
	ev := ChangeEvent{Type: t, Table: InquiryFeedKey, CommitTimestamp: time.Now().UTC()}
	if t == ChangeDelete {
		ev.Old = raw
	} else {
		ev.New = raw
	}
	return ev, nil
}
