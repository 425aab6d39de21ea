package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// StaleSessionMessage is the explanation written onto a non-terminal session
// coerced to error after outliving its TTL.
func StaleSessionMessage(ttl time.Duration) string {
	return fmt.Sprintf("Analysis timed out after %d minutes. Please upload the document again.", int(ttl.Minutes()))
}

// sanitizeSessions cleans a freshly loaded collection: entries without an id
// are dropped, duplicate ids collapse to one entry (last write wins, keeping
// the first-seen position), and stale non-terminal sessions are coerced to
// error. Returns the cleaned collection and whether anything changed.
func sanitizeSessions(sessions []*types.Session, now time.Time, ttl time.Duration) ([]*types.Session, bool) {
	changed := false
	out := make([]*types.Session, 0, len(sessions))
	index := make(map[string]int, len(sessions))

	for _, session := range sessions {
		if session == nil || strings.TrimSpace(session.ID) == "" {
			changed = true
			continue
		}
		if at, seen := index[session.ID]; seen {
			out[at] = session
			changed = true
			continue
		}
		index[session.ID] = len(out)
		out = append(out, session)
	}

	for i, session := range out {
		if !session.Stale(now, ttl) {
			continue
		}
		coerced := types.CloneSession(session)
		coerced.Status = types.StatusError
		coerced.Message = StaleSessionMessage(ttl)
		if last := lastMessage(coerced.MessageHistory); last != coerced.Message {
			coerced.MessageHistory = append(coerced.MessageHistory, coerced.Message)
		}
		out[i] = coerced
		changed = true
	}

	return out, changed
}

func lastMessage(history []string) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}
