// Package chat holds the pure merge rules applied to inbound chat state:
// message reconciliation and typing aggregation.
package chat

import (
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"
)

// DuplicateWindow bounds how far apart an optimistic message and its server
// echo may be stamped and still collapse into one record.
const DuplicateWindow = 3000 * time.Millisecond

type Outcome string

const (
	OutcomeExactID    Outcome = "exact_id"
	OutcomeCorrelated Outcome = "correlated"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeAppended   Outcome = "appended"
)

// Match finds the entry of list that incoming should replace. It returns -1
// and OutcomeAppended when incoming is a new message. An id-less message
// matches an id-less entry, so applying it twice never appends twice.
func Match(list []domain.Message, incoming domain.Message) (int, Outcome) {
	for i := range list {
		if list[i].ID == incoming.ID {
			return i, OutcomeExactID
		}
	}

	if incoming.ClientMessageID != "" {
		for i := range list {
			if list[i].ClientMessageID == incoming.ClientMessageID {
				return i, OutcomeCorrelated
			}
		}
	}

	if !incoming.Timestamp.IsZero() {
		for i := range list {
			if isEcho(list[i], incoming) {
				return i, OutcomeDuplicate
			}
		}
	}

	return -1, OutcomeAppended
}

// Reconcile merges incoming into list and returns the resulting list. The
// input slice is never modified.
func Reconcile(list []domain.Message, incoming domain.Message) []domain.Message {
	idx, _ := Match(list, incoming)

	if idx < 0 {
		out := make([]domain.Message, len(list), len(list)+1)
		copy(out, list)
		return append(out, incoming)
	}

	out := make([]domain.Message, len(list))
	copy(out, list)
	out[idx] = list[idx].Merge(incoming)
	return out
}

// UpdateByID merges patch into the entry with the same id. Unknown ids leave
// the list untouched and report false.
func UpdateByID(list []domain.Message, id string, patch domain.Message) ([]domain.Message, bool) {
	for i := range list {
		if list[i].ID != id {
			continue
		}
		out := make([]domain.Message, len(list))
		copy(out, list)
		out[i] = list[i].Merge(patch)
		return out, true
	}
	return list, false
}

func isEcho(existing, incoming domain.Message) bool {
	if existing.SenderID != incoming.SenderID || existing.Content != incoming.Content {
		return false
	}
	if existing.Timestamp.IsZero() {
		return false
	}

	diff := incoming.Timestamp.Sub(existing.Timestamp)
	if diff < 0 {
		diff = -diff
	}
	return diff < DuplicateWindow
}
