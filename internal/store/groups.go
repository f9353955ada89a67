package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crackenhq/cracken/internal/rotation"
)

// CreateUser inserts a user, generating an ID when none is set.
// ErrConflict when the email is already registered.
func (s *SQLite) CreateUser(ctx context.Context, u *rotation.User) error {
	if u.ID == "" {
		u.ID = rotation.GenerateUserID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.CreatedAt.UnixNano())
	return classify(err)
}

// GetUserByEmail looks a user up by email.
func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*rotation.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = ?`, email)
	return scanUser(row, "user "+email)
}

// GetUser looks a user up by ID.
func (s *SQLite) GetUser(ctx context.Context, id string) (*rotation.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id)
	return scanUser(row, "user "+id)
}

func scanUser(row *sql.Row, what string) (*rotation.User, error) {
	var u rotation.User
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt); err != nil {
		return nil, fmt.Errorf("%s: %w", what, classify(err))
	}
	u.CreatedAt = time.Unix(0, createdAt)
	return &u, nil
}

// ListUsers returns all users, oldest first.
func (s *SQLite) ListUsers(ctx context.Context) ([]*rotation.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*rotation.User
	for rows.Next() {
		var u rotation.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &u)
	}
	return out, rows.Err()
}

// CreateGroup inserts the group and makes its creator the first member
// with the admin role, as one transaction. The invite code is supplied by
// the caller and must be unique.
func (s *SQLite) CreateGroup(ctx context.Context, g *rotation.Group) error {
	if g.ID == "" {
		g.ID = rotation.GenerateGroupID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO groups (id, name, invite_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.InviteCode, g.CreatedBy, g.CreatedAt.UnixNano()); err != nil {
			return classify(err)
		}
		if g.CreatedBy == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at, active) VALUES (?, ?, ?, ?, 1)`,
			g.ID, g.CreatedBy, rotation.RoleAdmin, g.CreatedAt.UnixNano()); err != nil {
			return classify(err)
		}
		return nil
	})
}

// GetGroup returns a group by ID.
func (s *SQLite) GetGroup(ctx context.Context, id string) (*rotation.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, invite_code, COALESCE(created_by, ''), created_at FROM groups WHERE id = ?`, id)
	return scanGroup(row, "group "+id)
}

// GetGroupByInviteCode returns the group an invite code belongs to.
func (s *SQLite) GetGroupByInviteCode(ctx context.Context, code string) (*rotation.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, invite_code, COALESCE(created_by, ''), created_at FROM groups WHERE invite_code = ?`, code)
	return scanGroup(row, "invite code "+code)
}

func scanGroup(row *sql.Row, what string) (*rotation.Group, error) {
	var g rotation.Group
	var createdAt int64
	if err := row.Scan(&g.ID, &g.Name, &g.InviteCode, &g.CreatedBy, &createdAt); err != nil {
		return nil, fmt.Errorf("%s: %w", what, classify(err))
	}
	g.CreatedAt = time.Unix(0, createdAt)
	return &g, nil
}

// ListGroups returns all groups, oldest first.
func (s *SQLite) ListGroups(ctx context.Context) ([]*rotation.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, invite_code, COALESCE(created_by, ''), created_at FROM groups ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*rotation.Group
	for rows.Next() {
		var g rotation.Group
		var createdAt int64
		if err := rows.Scan(&g.ID, &g.Name, &g.InviteCode, &g.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		g.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &g)
	}
	return out, rows.Err()
}

// JoinGroup adds the user as a member with the given role. ErrConflict
// when already a member, ErrNotFound when group or user is missing.
func (s *SQLite) JoinGroup(ctx context.Context, groupID, userID string, role rotation.Role, at time.Time) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if role == "" {
		role = rotation.RoleMember
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at, active) VALUES (?, ?, ?, ?, 1)`,
		groupID, userID, role, at.UnixNano())
	return classify(err)
}

const memberColumns = `
	m.user_id, m.group_id, u.name, u.email, m.role, m.joined_at, m.active
	FROM group_members m JOIN users u ON u.id = m.user_id`

// ListMembers returns a group's members in join order.
func (s *SQLite) ListMembers(ctx context.Context, groupID string) ([]*rotation.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+memberColumns+` WHERE m.group_id = ? ORDER BY m.joined_at, m.user_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*rotation.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMember returns one membership row, ErrNotFound when the user does not
// belong to the group.
func (s *SQLite) GetMember(ctx context.Context, groupID, userID string) (*rotation.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+memberColumns+` WHERE m.group_id = ? AND m.user_id = ?`, groupID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("member %s in group %s: %w", userID, groupID, rotation.ErrNotFound)
	}
	return scanMember(rows)
}

func scanMember(rows *sql.Rows) (*rotation.Member, error) {
	var m rotation.Member
	var joinedAt int64
	var active int
	if err := rows.Scan(&m.UserID, &m.GroupID, &m.Name, &m.Email, &m.Role, &joinedAt, &active); err != nil {
		return nil, err
	}
	m.JoinedAt = time.Unix(0, joinedAt)
	m.Active = active != 0
	return &m, nil
}

// SetMemberActive toggles a member in or out of active rotation duty.
// History is retained either way.
func (s *SQLite) SetMemberActive(ctx context.Context, groupID, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE group_members SET active = ? WHERE group_id = ? AND user_id = ?`,
		boolInt(active), groupID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member %s in group %s: %w", userID, groupID, rotation.ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
