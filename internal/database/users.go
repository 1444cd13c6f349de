package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lessonbook/internal/models"
)

const userColumns = `id, display_name, contact_preference, phone, email,
                     instruments, pronouns, description, is_teacher, is_admin,
                     created_at, updated_at`

// CreateOrUpdateUser upserts a user keyed by its identity-provider id.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `INSERT INTO users (
				id, display_name, contact_preference, phone, email,
				instruments, pronouns, description, is_teacher, is_admin,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				contact_preference = excluded.contact_preference,
				phone = excluded.phone,
				email = excluded.email,
				instruments = excluded.instruments,
				pronouns = excluded.pronouns,
				description = excluded.description,
				is_teacher = excluded.is_teacher,
				is_admin = excluded.is_admin,
				updated_at = excluded.updated_at`
	_, err := db.db.ExecContext(ctx, query,
		user.ID,
		user.DisplayName,
		user.ContactPreference,
		user.Phone,
		user.Email,
		strings.Join(user.Instruments, ","),
		user.Pronouns,
		user.Description,
		user.IsTeacher,
		user.IsAdmin,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetTeachers returns roster members in name order.
func (db *DB) GetTeachers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_teacher = 1 ORDER BY display_name ASC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teachers: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetTeacher flips roster membership for an existing user.
func (db *DB) SetTeacher(ctx context.Context, id string, isTeacher bool) error {
	query := `UPDATE users SET is_teacher = ?, updated_at = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, isTeacher, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update roster flag: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var instruments string
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.ContactPreference, &u.Phone, &u.Email,
		&instruments, &u.Pronouns, &u.Description, &u.IsTeacher, &u.IsAdmin,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if instruments != "" {
		u.Instruments = strings.Split(instruments, ",")
	}
	return u, nil
}
