package transcript

import (
	"strings"
	"sync"
	"time"
)

// Role identifies a speaker in the interview.
type Role string

const (
	RoleUser        Role = "user"
	RoleInterviewer Role = "interviewer"
)

// Item is one committed transcript entry. Items are immutable once appended
// to the log; the log's order is commit order.
type Item struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Aggregator accumulates streamed partial-transcription fragments per speaker
// and turns them into committed items on a turn boundary.
type Aggregator struct {
	mu          sync.Mutex
	user        strings.Builder
	interviewer strings.Builder
	now         func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// Append concatenates a fragment onto the speaker's accumulator. Fragments
// arrive incrementally and are kept in arrival order.
func (a *Aggregator) Append(role Role, text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch role {
	case RoleUser:
		a.user.WriteString(text)
	case RoleInterviewer:
		a.interviewer.WriteString(text)
	}
}

// Commit finalizes the current turn: trims both accumulators, emits one item
// per non-empty accumulator (user first, then interviewer), and resets both.
// A turn boundary with no accumulated speech yields no items.
//
// The user-then-interviewer order is fixed; fragments that interleaved across
// speakers within a single turn are not re-ordered chronologically.
func (a *Aggregator) Commit() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	var items []Item
	if text := strings.TrimSpace(a.user.String()); text != "" {
		items = append(items, Item{Role: RoleUser, Text: text, At: a.now()})
	}
	if text := strings.TrimSpace(a.interviewer.String()); text != "" {
		items = append(items, Item{Role: RoleInterviewer, Text: text, At: a.now()})
	}
	a.user.Reset()
	a.interviewer.Reset()
	return items
}

// Reset drops any accumulated fragments without committing them.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.user.Reset()
	a.interviewer.Reset()
	a.mu.Unlock()
}

// Pending reports the uncommitted text for a speaker. Used by the UI to show
// in-flight captions.
func (a *Aggregator) Pending(role Role) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if role == RoleUser {
		return a.user.String()
	}
	return a.interviewer.String()
}
