package feed

import "github.com/dukerupert/pawtrack/internal/model"

// Meta is how a client should render a notification.
type Meta struct {
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	Route      string `json:"route,omitempty"`
	Actionable bool   `json:"actionable"`
}

var metas = map[model.NotificationType]Meta{
	model.NotifWalkMissed:    {Icon: "alert-circle", Color: "red", Route: "/schedule"},
	model.NotifCoverRequest:  {Icon: "info", Color: "amber", Route: "/schedule"},
	model.NotifSwapRequest:   {Icon: "arrow-right", Color: "blue", Actionable: true},
	model.NotifSwapAccepted:  {Icon: "check-circle", Color: "green"},
	model.NotifWalkCompleted: {Icon: "check-circle", Color: "green", Route: "/statistics"},
	model.NotifAchievement:   {Icon: "trophy", Color: "purple"},
	model.NotifWalkReminder:  {Icon: "clock", Color: "blue", Route: "/schedule"},
}

// MetaFor returns rendering metadata, falling back to a plain bell.
func MetaFor(t model.NotificationType) Meta {
	if m, ok := metas[t]; ok {
		return m
	}
	return Meta{Icon: "bell", Color: "gray"}
}

// View is a notification decorated with its metadata for JSON clients.
type View struct {
	model.Notification
	Meta Meta `json:"meta"`
}

func ViewOf(n model.Notification) View {
	return View{Notification: n, Meta: MetaFor(n.Type)}
}

func Views(items []model.Notification) []View {
	out := make([]View, len(items))
	for i, n := range items {
		out[i] = ViewOf(n)
	}
	return out
}
