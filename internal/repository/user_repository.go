package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mehdibennis/cinema/internal/database"
	"github.com/mehdibennis/cinema/internal/model"
)

var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

const userColumns = "id, username, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s scanner, u *model.User) error {
	var role string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	u.Role = model.Role(role)
	return nil
}

// Create inserts the user together with the profile its role requires
// (spectators get a Spectator profile, authors an Author profile) in a single
// transaction. u.PasswordHash must already be set; u.ID is filled in.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, email, password_hash, first_name, last_name, role, is_active) VALUES (?,?,?,?,?,?,?)",
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), true)
		if err != nil {
			switch {
			case duplicateKey(err, "uq_users_email"):
				return ErrEmailExists
			case duplicateKey(err, "uq_users_username"):
				return ErrUsernameExists
			}
			return classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = uint64(id)
		u.IsActive = true

		switch u.Role {
		case model.RoleSpectator:
			_, err = tx.ExecContext(ctx, "INSERT INTO spectators (user_id, favorite_genre, bio) VALUES (?, '', '')", u.ID)
		case model.RoleAuthor:
			_, err = tx.ExecContext(ctx, "INSERT INTO authors (user_id, bio, source) VALUES (?, '', ?)", u.ID, string(model.SourceAdmin))
		}
		return classify(err)
	})
}

// GetByLogin fetches an active or inactive user by username or email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		login, strings.ToLower(login)), &u)
	return u, classify(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	return u, classify(err)
}

// List returns a page of users ordered by id and the total count.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Delete removes a user; profiles, reviews and tokens cascade. Deleting an
// author who still owns films is refused with ErrProtected.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database reachability for readiness probes.
func (r *UserRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }
