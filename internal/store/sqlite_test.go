package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/crackenhq/cracken/internal/rotation"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cracken.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedHousehold creates a group with three members joined in order
// alice, bob, carol, and returns it with the member user IDs.
func seedHousehold(t *testing.T, s *SQLite) (*rotation.Group, []string) {
	t.Helper()
	ctx := context.Background()

	var ids []string
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for _, name := range []string{"alice", "bob", "carol"} {
		u := &rotation.User{Email: name + "@example.com", Name: name}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser %s: %v", name, err)
		}
		ids = append(ids, u.ID)
	}

	g := &rotation.Group{Name: "Flat 12", InviteCode: "FLAT12", CreatedBy: ids[0], CreatedAt: base}
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	for i, id := range ids[1:] {
		if err := s.JoinGroup(ctx, g.ID, id, rotation.RoleMember, base.Add(time.Duration(i+1)*time.Hour)); err != nil {
			t.Fatalf("JoinGroup: %v", err)
		}
	}
	return g, ids
}

func TestUsersAndGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	// Creator became the admin member.
	m, err := s.GetMember(ctx, g.ID, ids[0])
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.Role != rotation.RoleAdmin {
		t.Errorf("creator role: got %q, want admin", m.Role)
	}
	if !m.Active {
		t.Error("creator should start active")
	}

	// Members come back in join order with user details attached.
	members, err := s.ListMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("members: got %d, want 3", len(members))
	}
	for i, name := range []string{"alice", "bob", "carol"} {
		if members[i].Name != name {
			t.Errorf("member %d: got %q, want %q", i, members[i].Name, name)
		}
	}

	// Duplicate email and duplicate membership are conflicts.
	if err := s.CreateUser(ctx, &rotation.User{Email: "alice@example.com", Name: "alice2"}); !errors.Is(err, rotation.ErrConflict) {
		t.Errorf("duplicate email: got %v, want ErrConflict", err)
	}
	if err := s.JoinGroup(ctx, g.ID, ids[1], rotation.RoleMember, time.Now()); !errors.Is(err, rotation.ErrConflict) {
		t.Errorf("duplicate join: got %v, want ErrConflict", err)
	}

	// Invite code lookup finds the same group.
	byCode, err := s.GetGroupByInviteCode(ctx, "FLAT12")
	if err != nil {
		t.Fatalf("GetGroupByInviteCode: %v", err)
	}
	if byCode.ID != g.ID {
		t.Errorf("invite lookup: got %q, want %q", byCode.ID, g.ID)
	}
	if _, err := s.GetGroupByInviteCode(ctx, "NOPE"); !errors.Is(err, rotation.ErrNotFound) {
		t.Errorf("bad invite code: got %v, want ErrNotFound", err)
	}
}

func TestSetMemberActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	if err := s.SetMemberActive(ctx, g.ID, ids[1], false); err != nil {
		t.Fatalf("SetMemberActive: %v", err)
	}
	m, err := s.GetMember(ctx, g.ID, ids[1])
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.Active {
		t.Error("member still active after deactivation")
	}
	if err := s.SetMemberActive(ctx, g.ID, "usr_nope", false); !errors.Is(err, rotation.ErrNotFound) {
		t.Errorf("unknown member: got %v, want ErrNotFound", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	task := &rotation.Task{
		GroupID:  g.ID,
		Name:     "Dishes",
		Emoji:    "🍽️",
		Category: "cleaning",
		Cadence:  "daily",
		Rotation: ids,
	}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Name != "Dishes" || got.Pointer != 0 || got.Version != 0 {
		t.Errorf("task: got %+v", got)
	}
	if len(got.Rotation) != 3 || got.Rotation[0] != ids[0] {
		t.Errorf("rotation round-trip: got %v", got.Rotation)
	}

	// Rotation referencing a non-member is rejected.
	bad := &rotation.Task{GroupID: g.ID, Name: "Bins", Rotation: []string{"usr_stranger"}}
	if err := s.CreateTask(ctx, bad); !errors.Is(err, rotation.ErrNotFound) {
		t.Errorf("non-member rotation: got %v, want ErrNotFound", err)
	}

	// Soft delete hides the task from reads but keeps the row.
	if err := s.DeactivateTask(ctx, task.ID); err != nil {
		t.Fatalf("DeactivateTask: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, rotation.ErrNotFound) {
		t.Errorf("deactivated task: got %v, want ErrNotFound", err)
	}
	all, err := s.ListTasks(ctx, g.ID, true)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("inactive listing: got %d tasks, want 1", len(all))
	}
	active, err := s.ListTasks(ctx, g.ID, false)
	if err != nil {
		t.Fatalf("ListTasks active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active listing: got %d tasks, want 0", len(active))
	}
}

func TestUpdateTaskRotationVersioning(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	task := &rotation.Task{GroupID: g.ID, Name: "Dishes", Rotation: ids}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	a, _ := s.GetTask(ctx, task.ID)
	b, _ := s.GetTask(ctx, task.ID)

	a.Pointer = 1
	if err := s.UpdateTaskRotation(ctx, a); err != nil {
		t.Fatalf("UpdateTaskRotation: %v", err)
	}
	if a.Version != 1 {
		t.Errorf("version after update: got %d, want 1", a.Version)
	}

	// The stale reader loses.
	b.Pointer = 2
	if err := s.UpdateTaskRotation(ctx, b); !errors.Is(err, rotation.ErrConflict) {
		t.Errorf("stale update: got %v, want ErrConflict", err)
	}

	got, _ := s.GetTask(ctx, task.ID)
	if got.Pointer != 1 {
		t.Errorf("pointer: got %d, want 1 (stale write must not land)", got.Pointer)
	}
}

func TestCompleteTaskAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	task := &rotation.Task{GroupID: g.ID, Name: "Dishes", Rotation: ids}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	fresh, _ := s.GetTask(ctx, task.ID)
	stale, _ := s.GetTask(ctx, task.ID)

	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	fresh.Pointer = 1
	c := &rotation.Completion{
		ID: rotation.GenerateCompletionID(), TaskID: task.ID, GroupID: g.ID,
		MemberID: ids[0], ScheduledID: ids[0], CompletedAt: now,
	}
	if err := s.CompleteTask(ctx, fresh, c); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	// The losing writer leaves no completion behind: the transaction
	// rolls back as a unit.
	stale.Pointer = 1
	c2 := &rotation.Completion{
		ID: rotation.GenerateCompletionID(), TaskID: task.ID, GroupID: g.ID,
		MemberID: ids[1], ScheduledID: ids[0], OutOfTurn: true, CompletedAt: now.Add(time.Minute),
	}
	if err := s.CompleteTask(ctx, stale, c2); !errors.Is(err, rotation.ErrConflict) {
		t.Fatalf("stale complete: got %v, want ErrConflict", err)
	}

	list, err := s.ListCompletions(ctx, g.ID, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("ListCompletions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("completions: got %d, want 1", len(list))
	}
	if list[0].MemberID != ids[0] || list[0].OutOfTurn {
		t.Errorf("completion: got %+v", list[0])
	}
}

func TestListCompletionsSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g, ids := seedHousehold(t, s)

	task := &rotation.Task{GroupID: g.ID, Name: "Dishes", Rotation: ids}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	base := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		cur, err := s.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		cur.Pointer = (cur.Pointer + 1) % len(cur.Rotation)
		c := &rotation.Completion{
			ID: rotation.GenerateCompletionID(), TaskID: task.ID, GroupID: g.ID,
			MemberID: ids[i], ScheduledID: ids[i], CompletedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.CompleteTask(ctx, cur, c); err != nil {
			t.Fatalf("CompleteTask %d: %v", i, err)
		}
	}

	// Only completions at or after `since`, oldest first.
	list, err := s.ListCompletions(ctx, g.ID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListCompletions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("completions since: got %d, want 2", len(list))
	}
	if !list[0].CompletedAt.Before(list[1].CompletedAt) {
		t.Error("completions not in ascending time order")
	}

	last, err := s.LastCompletionAt(ctx, task.ID)
	if err != nil {
		t.Fatalf("LastCompletionAt: %v", err)
	}
	if want := base.Add(2 * time.Hour); !last.Equal(want) {
		t.Errorf("last completion: got %v, want %v", last, want)
	}
	none, err := s.LastCompletionAt(ctx, "task_none")
	if err != nil {
		t.Fatalf("LastCompletionAt none: %v", err)
	}
	if !none.IsZero() {
		t.Errorf("expected zero time for never-completed task, got %v", none)
	}
}
