package events

// Status is the lifecycle label of an event. The backend owns the lifecycle,
// so labels outside the known set are passed through verbatim.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Event is a card of fights on a given date.
type Event struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// Fight is a single matchup on an event card. RedName is the first
// competitor and BlueName the second.
type Fight struct {
	ID              string `json:"id"`
	EventID         string `json:"event_id"`
	RedName         string `json:"red_name"`
	BlueName        string `json:"blue_name"`
	ScheduledRounds int    `json:"scheduled_rounds"`
	BoutOrder       int    `json:"bout_order"`
}

// Title renders the matchup as "Red vs Blue".
func (f Fight) Title() string {
	return f.RedName + " vs " + f.BlueName
}

// MaxRounds is the longest scheduled distance, offered when a fight's own
// distance is not known.
const MaxRounds = 5

// Rounds is how many rounds a pick may name for this fight.
func (f Fight) Rounds() int {
	if f.ScheduledRounds > 0 {
		return f.ScheduledRounds
	}
	return MaxRounds
}

// AllowsRound reports whether round is within the fight's distance.
func (f Fight) AllowsRound(round int) bool {
	return round >= 1 && round <= f.Rounds()
}
