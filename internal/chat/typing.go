package chat

import "github.com/cwrk-planet/chatsync/internal/domain"

// ApplyTyping applies a single user's typing signal. When the resulting set is
// value-equal to current, current is returned unchanged with changed=false.
func ApplyTyping(current []domain.TypingEntry, update domain.TypingEntry) ([]domain.TypingEntry, bool) {
	next := make([]domain.TypingEntry, 0, len(current)+1)
	for _, e := range current {
		if e.GroupID == update.GroupID && e.UserID == update.UserID {
			continue
		}
		next = append(next, e)
	}
	if update.IsTyping {
		next = append(next, update)
	}

	if sameTypers(current, next) {
		return current, false
	}
	return next, true
}

// ApplyTypingSnapshot replaces the entries of groupID with the authoritative
// snapshot pushed by the server. Entries of other groups are kept.
func ApplyTypingSnapshot(current []domain.TypingEntry, groupID string, snapshot []domain.TypingEntry) ([]domain.TypingEntry, bool) {
	next := make([]domain.TypingEntry, 0, len(current)+len(snapshot))
	for _, e := range current {
		if e.GroupID != groupID {
			next = append(next, e)
		}
	}

	seen := make(map[string]struct{}, len(snapshot))
	for _, e := range snapshot {
		e.GroupID = groupID
		if !e.IsTyping {
			continue
		}
		if _, dup := seen[e.UserID]; dup {
			continue
		}
		seen[e.UserID] = struct{}{}
		next = append(next, e)
	}

	if sameTypers(current, next) {
		return current, false
	}
	return next, true
}

// VisibleTyping filters the set down to the group being viewed.
func VisibleTyping(set []domain.TypingEntry, groupID string) []domain.TypingEntry {
	out := make([]domain.TypingEntry, 0, len(set))
	if groupID == "" {
		return out
	}
	for _, e := range set {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out
}

// sameTypers compares two sets ignoring order.
func sameTypers(a, b []domain.TypingEntry) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[domain.TypingEntry]int, len(a))
	for _, e := range a {
		counts[e]++
	}
	for _, e := range b {
		if counts[e] == 0 {
			return false
		}
		counts[e]--
	}
	return true
}
