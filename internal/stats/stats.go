package stats

import (
	"fmt"

	"github.com/dukerupert/pawtrack/internal/model"
)

const (
	BadgeWalkChampion = "Walk Champion"
	BadgeLongestWalk  = "Longest Walk"
)

// RecordCompletion credits one completed walk to memberID. Only that
// member's counters change.
func RecordCompletion(members []model.Member, memberID string, duration int) ([]model.Member, error) {
	idx := -1
	for i := range members {
		if members[i].ID == memberID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return members, fmt.Errorf("member %s: %w", memberID, model.ErrNotFound)
	}
	out := append([]model.Member(nil), members...)
	out[idx].WalkCount++
	out[idx].TotalWalkDuration += duration
	return out, nil
}

// Badge is a derived achievement. MemberID is empty when nobody qualifies.
type Badge struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MemberID    string `json:"member_id,omitempty"`
	MemberName  string `json:"member_name,omitempty"`
	Value       int    `json:"value"`
}

// WalkChampion is the member with the most walks. Ties go to whoever comes
// first in the roster.
func WalkChampion(members []model.Member) Badge {
	b := Badge{Title: BadgeWalkChampion}
	best := -1
	for i, m := range members {
		if m.WalkCount > 0 && (best < 0 || m.WalkCount > members[best].WalkCount) {
			best = i
		}
	}
	if best >= 0 {
		b.MemberID = members[best].ID
		b.MemberName = members[best].Name
		b.Value = members[best].WalkCount
	}
	b.Description = fmt.Sprintf("Most walks (%d)", b.Value)
	return b
}

// LongestWalk credits the assignee of the single longest completed walk,
// first occurrence winning ties.
func LongestWalk(members []model.Member, walks []model.Walk) Badge {
	b := Badge{Title: BadgeLongestWalk}
	var best *model.Walk
	for i := range walks {
		w := &walks[i]
		if w.Status != model.WalkCompleted || w.Duration == nil {
			continue
		}
		if best == nil || *w.Duration > *best.Duration {
			best = w
		}
	}
	if best != nil {
		b.Value = *best.Duration
		b.MemberID = best.AssignedTo
		b.MemberName = "Unknown"
		for _, m := range members {
			if m.ID == best.AssignedTo {
				b.MemberName = m.Name
				break
			}
		}
	}
	b.Description = fmt.Sprintf("%d minutes", b.Value)
	return b
}

// Derived recomputes every derived badge from the full collections.
func Derived(members []model.Member, walks []model.Walk) []Badge {
	return []Badge{WalkChampion(members), LongestWalk(members, walks)}
}

// Changed returns the badges in after whose holder differs from before and
// that now have a holder.
func Changed(before, after []Badge) []Badge {
	prev := make(map[string]string, len(before))
	for _, b := range before {
		prev[b.Title] = b.MemberID
	}
	var out []Badge
	for _, b := range after {
		if b.MemberID != "" && prev[b.Title] != b.MemberID {
			out = append(out, b)
		}
	}
	return out
}

// Grant appends a manual badge label to a member. Granting a label the
// member already holds is a no-op and reports false.
func Grant(members []model.Member, memberID, label string) ([]model.Member, bool, error) {
	for i := range members {
		if members[i].ID != memberID {
			continue
		}
		if members[i].HasAchievement(label) {
			return members, false, nil
		}
		out := append([]model.Member(nil), members...)
		out[i].Achievements = append(append([]string{}, members[i].Achievements...), label)
		return out, true, nil
	}
	return members, false, fmt.Errorf("member %s: %w", memberID, model.ErrNotFound)
}

// Summary is a per-member statistics row.
type Summary struct {
	MemberID        string   `json:"member_id"`
	Name            string   `json:"name"`
	WalkCount       int      `json:"walk_count"`
	TotalMinutes    int      `json:"total_minutes"`
	AverageMinutes  int      `json:"average_minutes"`
	Achievements    []string `json:"achievements"`
	UpcomingWalks   int      `json:"upcoming_walks"`
	SwapRequestsOut int      `json:"swap_requests_out"`
}

func Summarize(members []model.Member, walks []model.Walk) []Summary {
	out := make([]Summary, len(members))
	for i, m := range members {
		s := Summary{
			MemberID:     m.ID,
			Name:         m.Name,
			WalkCount:    m.WalkCount,
			TotalMinutes: m.TotalWalkDuration,
			Achievements: append([]string{}, m.Achievements...),
		}
		if m.WalkCount > 0 {
			s.AverageMinutes = m.TotalWalkDuration / m.WalkCount
		}
		for _, w := range walks {
			if w.AssignedTo != m.ID {
				continue
			}
			switch w.Status {
			case model.WalkNotStarted, model.WalkConfirmed:
				s.UpcomingWalks++
			case model.WalkSwapRequested:
				s.SwapRequestsOut++
			}
		}
		out[i] = s
	}
	return out
}
