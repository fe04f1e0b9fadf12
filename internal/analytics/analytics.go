package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gitbrand/internal/storage"
)

// DailyStats summarises one day of the journal.
type DailyStats struct {
	Date          string                  `json:"date"`
	Turns         int                     `json:"turns"`
	Sessions      int                     `json:"sessions"`
	ActionsStaged int                     `json:"actions_staged"`
	ActionsByVerb map[string]int          `json:"actions_by_verb"`
	Done          int                     `json:"done"`
	Failed        int                     `json:"failed"`
	Cancelled     int                     `json:"cancelled"`
	SessionStats  map[string]SessionStats `json:"session_stats"`
}

type SessionStats struct {
	Session  string `json:"session"`
	Turns    int    `json:"turns"`
	Executed int    `json:"executed"`
}

// Action statuses as written to the journal.
const (
	StatusStaged    = "awaiting"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// AnalyzeDay aggregates the events that happened on day, in day's location.
func AnalyzeDay(events []storage.Event, day time.Time) *DailyStats {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:          start.Format("2006-01-02"),
		ActionsByVerb: make(map[string]int),
		SessionStats:  make(map[string]SessionStats),
	}

	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		ss := stats.SessionStats[ev.Session]
		ss.Session = ev.Session

		switch ev.Kind {
		case storage.KindTurn:
			if ev.UserMessage == "" {
				continue
			}
			stats.Turns++
			ss.Turns++
		case storage.KindAction:
			switch ev.Status {
			case StatusStaged:
				stats.ActionsStaged++
				stats.ActionsByVerb[ev.Verb]++
			case StatusDone:
				stats.Done++
				ss.Executed++
			case StatusFailed:
				stats.Failed++
				ss.Executed++
			case StatusCancelled:
				stats.Cancelled++
			}
		default:
			continue
		}
		stats.SessionStats[ev.Session] = ss
	}

	stats.Sessions = len(stats.SessionStats)
	return stats
}

// Summary renders the stats as a short plain-text report.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Activity for %s\n", ds.Date)
	fmt.Fprintf(&b, "- Turns: %d in %d session(s)\n", ds.Turns, ds.Sessions)
	fmt.Fprintf(&b, "- Actions proposed: %d\n", ds.ActionsStaged)
	fmt.Fprintf(&b, "- Executed: %d ok, %d failed, %d cancelled\n", ds.Done, ds.Failed, ds.Cancelled)

	if len(ds.ActionsByVerb) > 0 {
		verbs := make([]string, 0, len(ds.ActionsByVerb))
		for v := range ds.ActionsByVerb {
			verbs = append(verbs, v)
		}
		sort.Strings(verbs)
		b.WriteString("By verb:\n")
		for _, v := range verbs {
			fmt.Fprintf(&b, "- %s: %d\n", v, ds.ActionsByVerb[v])
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
