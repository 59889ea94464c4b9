package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gridwatch/internal/models"
)

// loginActivityLimit caps the per-user login activity ring.
const loginActivityLimit = 50

// CreateUser inserts an account. Returns ErrDuplicateEmail when the email
// is taken.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, role string) (models.User, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		email, passwordHash, role, now.Unix())
	if isUniqueViolation(err) {
		return models.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return models.User{ID: id, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: now}, nil
}

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var created int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &created)
	if err == nil {
		u.CreatedAt = time.Unix(created, 0)
	}
	return u, err
}

// UserByEmail fetches an account or ErrNotFound.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

// UserByID fetches an account or ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

// AdminExists reports whether any admin account is registered. Public
// signup may only create the first admin.
func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, models.RoleAdmin).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("admin exists: %w", err)
	}
	return count > 0, nil
}

// ListUsers returns all accounts, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RecordLogin appends a login attempt and trims the user's activity to the
// newest loginActivityLimit rows.
func (s *Store) RecordLogin(ctx context.Context, userID int64, ip string, success bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	defer tx.Rollback()

	ok := 0
	if success {
		ok = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO login_activity (user_id, timestamp, ip_address, success) VALUES (?, ?, ?, ?)`,
		userID, time.Now().UnixNano(), ip, ok); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM login_activity WHERE user_id = ? AND rowid NOT IN (
			SELECT rowid FROM login_activity WHERE user_id = ?
			ORDER BY timestamp DESC LIMIT ?)`,
		userID, userID, loginActivityLimit); err != nil {
		return fmt.Errorf("trim login activity: %w", err)
	}
	return tx.Commit()
}

// LoginActivity returns a user's recent login attempts, newest first.
func (s *Store) LoginActivity(ctx context.Context, userID int64, limit int) ([]models.LoginRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, timestamp, ip_address, success FROM login_activity
		 WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("login activity: %w", err)
	}
	defer rows.Close()
	records := []models.LoginRecord{}
	for rows.Next() {
		var r models.LoginRecord
		var ts int64
		var ok int
		if err := rows.Scan(&r.UserID, &ts, &r.IPAddress, &ok); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts)
		r.Success = ok == 1
		records = append(records, r)
	}
	return records, rows.Err()
}
