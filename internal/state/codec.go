package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
)

// Encode serializes a snapshot for remember-me storage.
func Encode(s model.HouseholdState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// looseTime accepts the date layouts older snapshots were written with.
type looseTime struct {
	t time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (lt *looseTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			lt.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

func (lt *looseTime) ptr() *time.Time {
	if lt == nil || lt.t.IsZero() {
		return nil
	}
	t := lt.t
	return &t
}

type walkDoc struct {
	model.Walk
	Date      looseTime  `json:"date"`
	StartTime *looseTime `json:"start_time,omitempty"`
	EndTime   *looseTime `json:"end_time,omitempty"`
}

type notificationDoc struct {
	model.Notification
	Time looseTime `json:"time"`
}

type memberDoc struct {
	model.Member
	Achievements []any `json:"achievements"`
}

type stateDoc struct {
	model.HouseholdState
	Members       []memberDoc       `json:"members"`
	Walks         []walkDoc         `json:"walks"`
	Notifications []notificationDoc `json:"notifications"`
}

// Decode restores a snapshot. Dates are rehydrated from any of the accepted
// text layouts, loosely typed fields are normalized and the result is
// validated. Any failure yields a fresh unregistered state with the error.
func Decode(data []byte) (model.HouseholdState, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Fresh(), fmt.Errorf("decode state: %w", err)
	}

	s := doc.HouseholdState
	s.Members = make([]model.Member, len(doc.Members))
	for i, md := range doc.Members {
		m := md.Member
		m.Achievements = normalizeAchievements(md.Achievements)
		s.Members[i] = m
	}
	s.Walks = make([]model.Walk, len(doc.Walks))
	for i, wd := range doc.Walks {
		w := wd.Walk
		w.Date = wd.Date.t
		w.StartTime = wd.StartTime.ptr()
		w.EndTime = wd.EndTime.ptr()
		s.Walks[i] = w
	}
	s.Notifications = make([]model.Notification, len(doc.Notifications))
	for i, nd := range doc.Notifications {
		n := nd.Notification
		n.Time = nd.Time.t
		s.Notifications[i] = n
	}

	if cur, ok := s.CurrentWalk(); !ok || cur.Status != model.WalkInProgress || cur.AssignedTo != s.CurrentUser {
		s.CurrentWalkID = inProgressFor(s.Walks, s.CurrentUser)
	}
	if err := s.Validate(); err != nil {
		return Fresh(), fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

// normalizeAchievements keeps string labels and drops anything else an
// older client may have stored.
func normalizeAchievements(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch v := v.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		case map[string]any:
			if title, ok := v["title"].(string); ok && title != "" {
				out = append(out, title)
			}
		}
	}
	return out
}
