package model

import "time"

type WalkStatus string

const (
	WalkNotStarted    WalkStatus = "Not Started"
	WalkConfirmed     WalkStatus = "Confirmed"
	WalkInProgress    WalkStatus = "In Progress"
	WalkCompleted     WalkStatus = "Completed"
	WalkSwapRequested WalkStatus = "Swap Requested"
)

func (s WalkStatus) Valid() bool {
	switch s {
	case WalkNotStarted, WalkConfirmed, WalkInProgress, WalkCompleted, WalkSwapRequested:
		return true
	}
	return false
}

type DogMood string

const (
	MoodHappy    DogMood = "Happy"
	MoodCalm     DogMood = "Calm"
	MoodTired    DogMood = "Tired"
	MoodStressed DogMood = "Stressed"
)

func (m DogMood) Valid() bool {
	switch m {
	case "", MoodHappy, MoodCalm, MoodTired, MoodStressed:
		return true
	}
	return false
}

// Activity is what happened on a walk.
type Activity struct {
	Peed   bool   `json:"peed"`
	Pooped bool   `json:"pooped"`
	Notes  string `json:"notes,omitempty"`
}

type Walk struct {
	ID              string     `json:"id"`
	Date            time.Time  `json:"date"`
	AssignedTo      string     `json:"assigned_to"`
	Status          WalkStatus `json:"status"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Duration        *int       `json:"duration,omitempty"`
	Activity        *Activity  `json:"activity,omitempty"`
	DogMood         DogMood    `json:"dog_mood,omitempty"`
	SwapRequestedBy string     `json:"swap_requested_by,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

func (w Walk) clone() Walk {
	out := w
	if w.StartTime != nil {
		t := *w.StartTime
		out.StartTime = &t
	}
	if w.EndTime != nil {
		t := *w.EndTime
		out.EndTime = &t
	}
	if w.Duration != nil {
		d := *w.Duration
		out.Duration = &d
	}
	if w.Activity != nil {
		a := *w.Activity
		out.Activity = &a
	}
	return out
}
