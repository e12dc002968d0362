// Package state owns the household state held by one session. Apply is a
// pure reducer over model.HouseholdState; Store serializes calls to it and
// hands the resulting effects to the persistence queue.
package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/pawtrack/internal/feed"
	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
	"github.com/dukerupert/pawtrack/internal/schedule"
	"github.com/dukerupert/pawtrack/internal/stats"
	"github.com/dukerupert/pawtrack/internal/swap"
	"github.com/dukerupert/pawtrack/internal/walk"
)

// Result is the outcome of a successful transition.
type Result struct {
	State model.HouseholdState
	// Notifications are the ones this transition created, for delivery.
	Notifications []model.Notification
	// Withheld holds ids from Notifications that must not be published by
	// the session: swap acceptances wait for the stored outcome, conflict
	// notices stay with the member who lost.
	Withheld []string
	Effects  []persist.Effect
	// Subject is the id of the entity the action created or targeted.
	Subject string
}

// Published returns the notifications the session may hand to other
// sessions right away.
func (r Result) Published() []model.Notification {
	if len(r.Withheld) == 0 {
		return r.Notifications
	}
	out := make([]model.Notification, 0, len(r.Notifications))
	for _, n := range r.Notifications {
		if !slices.Contains(r.Withheld, n.ID) {
			out = append(out, n)
		}
	}
	return out
}

type builder struct {
	env  Env
	next model.HouseholdState
	res  Result
}

func (b *builder) effect(e persist.Effect) {
	b.res.Effects = append(b.res.Effects, e)
}

// emit appends n to the feed and queues its insert.
func (b *builder) emit(n model.Notification) {
	b.add(n)
	nn := n
	b.effect(persist.Effect{Kind: persist.KindInsertNotification, Notification: &nn})
}

// add appends n to the feed without persisting it.
func (b *builder) add(n model.Notification) {
	b.next.Notifications, _ = feed.Append(b.next.Notifications, n)
	b.res.Notifications = append(b.res.Notifications, n)
}

func (b *builder) withhold(n model.Notification) {
	b.res.Withheld = append(b.res.Withheld, n.ID)
}

func (b *builder) upsertWalk(w model.Walk) {
	ww := w
	b.effect(persist.Effect{Kind: persist.KindUpsertWalk, Walk: &ww})
}

func (b *builder) upsertMember(m model.Member) {
	mm := m
	mm.Achievements = append([]string{}, m.Achievements...)
	b.effect(persist.Effect{Kind: persist.KindUpsertMember, Member: &mm})
}

func (b *builder) actor() string {
	return b.next.CurrentUser
}

func (b *builder) walkAt(id string) (int, error) {
	i := b.next.WalkIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("walk %s: %w", id, model.ErrNotFound)
	}
	return i, nil
}

// Apply runs action a against s. On error the returned state is s.
func Apply(env Env, s model.HouseholdState, a Action) (Result, error) {
	if !s.IsRegistered {
		return Result{State: s}, fmt.Errorf("%s: %w: household not registered", a.Name(), model.ErrInvalidState)
	}
	b := &builder{env: env, next: s.Clone()}

	var err error
	switch a := a.(type) {
	case StartWalk:
		err = b.startWalk(a)
	case ConfirmWalk:
		err = b.confirmWalk(a)
	case RequestSwap:
		err = b.requestSwap(a)
	case RequestCover:
		err = b.requestCover(a)
	case AcceptSwap:
		err = b.acceptSwap(a)
	case EndWalk:
		err = b.endWalk(a)
	case MarkRead:
		err = b.markRead(a)
	case MarkAllRead:
		b.markAllRead()
	case AddMember:
		err = b.addMember(a)
	case RemoveMember:
		err = b.removeMember(a)
	case SwitchUser:
		err = b.switchUser(a)
	case UpdateDog:
		err = b.updateDog(a)
	case AddWalk:
		err = b.addWalk(a)
	case RemoveWalk:
		err = b.removeWalk(a)
	case RescheduleWalk:
		err = b.rescheduleWalk(a)
	case ReassignWalk:
		err = b.reassignWalk(a)
	case GrantAchievement:
		err = b.grantAchievement(a)
	case CheckReminders:
		b.checkReminders(a)
	case ReceiveNotification:
		err = b.receiveNotification(a)
	case SwapConflict:
		b.swapConflict(a)
	default:
		err = fmt.Errorf("unknown action %T: %w", a, model.ErrInvalidState)
	}
	if err != nil {
		return Result{State: s}, fmt.Errorf("%s: %w", a.Name(), err)
	}
	if err := b.next.Validate(); err != nil {
		return Result{State: s}, fmt.Errorf("%s: %w", a.Name(), err)
	}

	for i := range b.res.Effects {
		b.res.Effects[i].HouseholdID = s.HouseholdID
	}
	b.res.State = b.next
	return b.res, nil
}

func (b *builder) startWalk(a StartWalk) error {
	i, err := b.walkAt(a.WalkID)
	if err != nil {
		return err
	}
	w, err := walk.Start(b.next.Walks[i], b.actor(), b.env.Now)
	if err != nil {
		return err
	}
	if b.next.CurrentWalkID != "" {
		return fmt.Errorf("%w: walk %s is already in progress", model.ErrInvalidState, b.next.CurrentWalkID)
	}
	b.next.Walks[i] = w
	b.next.CurrentWalkID = w.ID
	b.res.Subject = w.ID
	b.upsertWalk(w)
	return nil
}

func (b *builder) confirmWalk(a ConfirmWalk) error {
	i, err := b.walkAt(a.WalkID)
	if err != nil {
		return err
	}
	w, err := walk.Confirm(b.next.Walks[i], b.actor())
	if err != nil {
		return err
	}
	b.next.Walks[i] = w
	b.res.Subject = w.ID
	b.upsertWalk(w)
	return nil
}

func (b *builder) requestSwap(a RequestSwap) error {
	i, err := b.walkAt(a.WalkID)
	if err != nil {
		return err
	}
	w, n, err := swap.Request(b.next.Walks[i], b.actor(), b.next.MemberName(b.actor()), b.env.Now, b.env.NewID())
	if err != nil {
		return err
	}
	b.next.Walks[i] = w
	b.res.Subject = n.ID
	b.upsertWalk(w)
	b.emit(n)
	return nil
}

func (b *builder) requestCover(a RequestCover) error {
	i, err := b.walkAt(a.WalkID)
	if err != nil {
		return err
	}
	n, err := swap.Cover(b.next.Walks[i], b.actor(), b.next.MemberName(b.actor()), b.env.Now, b.env.NewID())
	if err != nil {
		return err
	}
	b.res.Subject = n.ID
	b.emit(n)
	return nil
}

func (b *builder) acceptSwap(a AcceptSwap) error {
	ni := b.next.NotificationIndex(a.NotificationID)
	if ni < 0 {
		return fmt.Errorf("notification %s: %w", a.NotificationID, model.ErrNotFound)
	}
	n := b.next.Notifications[ni]
	wi := b.next.WalkIndex(n.RelatedID)
	if wi < 0 {
		return fmt.Errorf("walk %s: %w", n.RelatedID, model.ErrNotFound)
	}
	acc, err := swap.Accept(b.next.Walks[wi], n, b.actor(), b.next.MemberName(b.actor()), b.env.Now, b.env.NewID())
	if err != nil {
		return err
	}
	b.next.Walks[wi] = acc.Walk
	b.next.Notifications[ni] = acc.Original
	b.add(acc.Accepted)
	b.withhold(acc.Accepted)
	b.res.Subject = acc.Walk.ID

	w, accepted := acc.Walk, acc.Accepted
	b.effect(persist.Effect{
		Kind:         persist.KindAcceptSwap,
		Walk:         &w,
		Notification: &accepted,
		RequestID:    n.ID,
		AcceptedBy:   b.actor(),
	})
	return nil
}

func (b *builder) endWalk(a EndWalk) error {
	cur, ok := b.next.CurrentWalk()
	if !ok {
		return model.ErrNoActiveWalk
	}
	w, err := walk.End(cur, b.env.Now, a.Completion)
	if err != nil {
		return err
	}
	before := stats.Derived(b.next.Members, b.next.Walks)
	members, err := stats.RecordCompletion(b.next.Members, w.AssignedTo, *w.Duration)
	if err != nil {
		return err
	}
	b.next.Walks[b.next.WalkIndex(w.ID)] = w
	b.next.Members = members
	b.next.CurrentWalkID = ""
	b.res.Subject = w.ID

	b.upsertWalk(w)
	b.upsertMember(members[b.next.MemberIndex(w.AssignedTo)])
	b.emit(feed.NewWalkCompleted(b.env.NewID(), b.env.Now, w, b.next.MemberName(w.AssignedTo), b.next.Dog.Name))

	for _, badge := range stats.Changed(before, stats.Derived(b.next.Members, b.next.Walks)) {
		b.emit(feed.NewAchievement(b.env.NewID(), b.env.Now, badge.MemberID, badge.MemberName, badge.Title))
	}
	return nil
}

func (b *builder) markRead(a MarkRead) error {
	items, changed, err := feed.MarkRead(b.next.Notifications, a.NotificationID)
	if err != nil {
		return err
	}
	b.next.Notifications = items
	b.res.Subject = a.NotificationID
	if changed {
		b.effect(persist.Effect{Kind: persist.KindMarkRead, IDs: []string{a.NotificationID}})
	}
	return nil
}

func (b *builder) markAllRead() {
	items, changed := feed.MarkAllRead(b.next.Notifications)
	b.next.Notifications = items
	if len(changed) > 0 {
		b.effect(persist.Effect{Kind: persist.KindMarkRead, IDs: changed})
	}
}

func (b *builder) addMember(a AddMember) error {
	m, err := newMember(b.env.NewID(), a.MemberName, a.Email, a.AvatarRef, a.Role, model.RoleSecondary)
	if err != nil {
		return err
	}
	b.next.Members = append(b.next.Members, m)
	b.res.Subject = m.ID
	b.upsertMember(m)
	return nil
}

func newMember(id, name, email, avatar string, role, fallback model.Role) (model.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Member{}, fmt.Errorf("%w: member name is required", model.ErrInvalidState)
	}
	if role == "" {
		role = fallback
	}
	if !role.Valid() {
		return model.Member{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalidState, role)
	}
	return model.Member{
		ID:           id,
		Name:         name,
		Email:        strings.TrimSpace(email),
		AvatarRef:    avatar,
		Role:         role,
		Achievements: []string{},
	}, nil
}

// removeMember hands the leaving member's walks to the first remaining
// member in roster order.
func (b *builder) removeMember(a RemoveMember) error {
	if a.MemberID == b.actor() {
		return fmt.Errorf("%w: cannot remove the current user", model.ErrNotAuthorized)
	}
	i := b.next.MemberIndex(a.MemberID)
	if i < 0 {
		return fmt.Errorf("member %s: %w", a.MemberID, model.ErrNotFound)
	}
	fallback := b.actor()
	for _, m := range b.next.Members {
		if m.ID != a.MemberID {
			fallback = m.ID
			break
		}
	}

	walks, moved := schedule.ReassignAll(b.next.Walks, a.MemberID, fallback)
	b.next.Walks = walks
	b.next.Members = append(b.next.Members[:i:i], b.next.Members[i+1:]...)
	b.res.Subject = fallback

	b.effect(persist.Effect{Kind: persist.KindDeleteMember, IDs: []string{a.MemberID}})
	for _, id := range moved {
		b.upsertWalk(walks[b.next.WalkIndex(id)])
	}
	return nil
}

// switchUser changes the acting member. The current walk follows the
// member: it becomes their in-progress walk, if they have one.
func (b *builder) switchUser(a SwitchUser) error {
	if b.next.MemberIndex(a.MemberID) < 0 {
		return fmt.Errorf("member %s: %w", a.MemberID, model.ErrNotFound)
	}
	b.next.CurrentUser = a.MemberID
	b.next.CurrentWalkID = inProgressFor(b.next.Walks, a.MemberID)
	b.res.Subject = a.MemberID
	return nil
}

func inProgressFor(walks []model.Walk, memberID string) string {
	for _, w := range walks {
		if w.AssignedTo == memberID && w.Status == model.WalkInProgress && w.StartTime != nil {
			return w.ID
		}
	}
	return ""
}

func (b *builder) updateDog(a UpdateDog) error {
	d := a.Dog
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("%w: dog name is required", model.ErrInvalidState)
	}
	if !d.EnergyLevel.Valid() {
		return fmt.Errorf("%w: unknown energy level %q", model.ErrInvalidState, d.EnergyLevel)
	}
	if d.Age < 0 || d.Weight < 0 {
		return fmt.Errorf("%w: age and weight must not be negative", model.ErrInvalidState)
	}
	b.next.Dog = d
	b.effect(persist.Effect{Kind: persist.KindSaveDog, Dog: &d})
	return nil
}

func (b *builder) addWalk(a AddWalk) error {
	walks, w, err := schedule.Add(b.next.Walks, b.next.Members, a.Draft, b.env.NewID())
	if err != nil {
		return err
	}
	b.next.Walks = walks
	b.res.Subject = w.ID
	b.upsertWalk(w)
	return nil
}

func (b *builder) removeWalk(a RemoveWalk) error {
	walks, err := schedule.Remove(b.next.Walks, a.WalkID)
	if err != nil {
		return err
	}
	b.next.Walks = walks
	b.res.Subject = a.WalkID
	b.effect(persist.Effect{Kind: persist.KindDeleteWalk, IDs: []string{a.WalkID}})
	return nil
}

func (b *builder) rescheduleWalk(a RescheduleWalk) error {
	walks, w, err := schedule.Reschedule(b.next.Walks, a.WalkID, a.Date)
	if err != nil {
		return err
	}
	b.next.Walks = walks
	b.res.Subject = w.ID
	b.upsertWalk(w)
	return nil
}

func (b *builder) reassignWalk(a ReassignWalk) error {
	walks, w, err := schedule.Reassign(b.next.Walks, b.next.Members, a.WalkID, a.MemberID)
	if err != nil {
		return err
	}
	b.next.Walks = walks
	b.res.Subject = w.ID
	b.upsertWalk(w)
	return nil
}

func (b *builder) grantAchievement(a GrantAchievement) error {
	label := strings.TrimSpace(a.Label)
	if label == "" {
		return fmt.Errorf("%w: achievement label is required", model.ErrInvalidState)
	}
	members, added, err := stats.Grant(b.next.Members, a.MemberID, label)
	if err != nil {
		return err
	}
	b.res.Subject = a.MemberID
	if !added {
		return nil
	}
	b.next.Members = members
	b.upsertMember(members[b.next.MemberIndex(a.MemberID)])
	b.emit(feed.NewAchievement(b.env.NewID(), b.env.Now, a.MemberID, b.next.MemberName(a.MemberID), label))
	return nil
}

// checkReminders emits at most one reminder and one missed notice per walk.
func (b *builder) checkReminders(a CheckReminders) {
	for _, w := range b.next.Walks {
		name := b.next.MemberName(w.AssignedTo)
		if walk.DueForReminder(w, b.env.Now, a.Lead) && !feed.HasRelated(b.next.Notifications, model.NotifWalkReminder, w.ID) {
			b.emit(feed.NewWalkReminder(b.env.NewID(), b.env.Now, w, name, b.next.Dog.Name))
		}
		if walk.Missed(w, b.env.Now, a.Grace, feed.ReadRetention) && !feed.HasRelated(b.next.Notifications, model.NotifWalkMissed, w.ID) {
			b.emit(feed.NewWalkMissed(b.env.NewID(), b.env.Now, w, name))
		}
	}
}

// receiveNotification merges a notification another session already
// persisted. Swap notices also carry the walk change they describe.
func (b *builder) receiveNotification(a ReceiveNotification) error {
	n := a.Notification
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", model.ErrInvalidState, n.Type)
	}
	items, added := feed.Append(b.next.Notifications, n)
	if !added {
		return nil
	}
	b.next.Notifications = items
	b.res.Subject = n.ID

	wi := b.next.WalkIndex(n.RelatedID)
	if wi < 0 || n.CreatedBy == "" {
		return nil
	}
	w := b.next.Walks[wi]
	switch n.Type {
	case model.NotifSwapRequest:
		if w.Status == model.WalkNotStarted && w.AssignedTo == n.CreatedBy {
			w.Status = model.WalkSwapRequested
			w.SwapRequestedBy = n.CreatedBy
			b.next.Walks[wi] = w
		}
	case model.NotifSwapAccepted:
		if open, ok := swap.Open(b.next.Notifications, w.ID); ok {
			oi := b.next.NotificationIndex(open.ID)
			b.next.Notifications[oi].AcceptedBy = n.CreatedBy
			b.next.Notifications[oi].Read = true
		}
		if reassigned, err := walk.Reassign(w, n.CreatedBy); err == nil {
			b.next.Walks[wi] = reassigned
		}
	}
	return nil
}

// swapConflict rolls a lost local acceptance forward to what is stored.
func (b *builder) swapConflict(a SwapConflict) {
	if ni := b.next.NotificationIndex(a.RequestID); ni >= 0 {
		b.next.Notifications[ni].AcceptedBy = a.Winner
		b.next.Notifications[ni].Read = true
	}
	if ai := b.next.NotificationIndex(a.AcceptedID); ai >= 0 {
		b.next.Notifications = append(b.next.Notifications[:ai:ai], b.next.Notifications[ai+1:]...)
	}
	if a.Walk != nil {
		if wi := b.next.WalkIndex(a.Walk.ID); wi >= 0 {
			b.next.Walks[wi] = *a.Walk
			if b.next.CurrentWalkID == a.Walk.ID {
				b.next.CurrentWalkID = inProgressFor(b.next.Walks, b.next.CurrentUser)
			}
		}
	}

	msg := "Someone else accepted this walk swap first."
	if a.Winner != "" {
		msg = fmt.Sprintf("%s accepted this walk swap first.", b.next.MemberName(a.Winner))
	}
	notice := feed.NewSystem(b.env.NewID(), b.env.Now, b.actor(), "Swap Already Taken", msg)
	b.emit(notice)
	b.withhold(notice)
}
