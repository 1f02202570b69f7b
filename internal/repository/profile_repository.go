package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ebulku/xtream-player/internal/model"
)

// ProfileRepo persists IPTV profiles. Every query is scoped by owner so a
// user can never read or mutate another user's profiles.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = "id,user_id,name,iptv_url,iptv_username,iptv_password,is_active,created_at,updated_at"

func scanProfile(row interface{ Scan(...any) error }) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.IptvURL, &p.IptvUsername,
		&p.IptvPassword, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a profile for the owner and returns its ID. The first
// profile a user creates becomes active immediately so a fresh account is
// usable without an extra activation step.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) (uint64, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM profiles WHERE user_id=?", p.UserID).Scan(&count); err != nil {
		return 0, err
	}
	p.IsActive = count == 0
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO profiles (user_id, name, iptv_url, iptv_username, iptv_password, is_active) VALUES (?,?,?,?,?,?)",
		p.UserID, p.Name, p.IptvURL, p.IptvUsername, p.IptvPassword, p.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrProfileExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = uint64(id)
	return uint64(id), nil
}

// ListByOwner returns all profiles of a user ordered by creation time,
// plus the id of the active one (0 when none is active).
func (r *ProfileRepo) ListByOwner(ctx context.Context, userID uint64) ([]model.Profile, uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0, 4)
	var activeID uint64
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		if p.IsActive {
			activeID = p.ID
		}
		profiles = append(profiles, p)
	}
	return profiles, activeID, rows.Err()
}

// GetActive returns the owner's active profile, or ErrProfileNotFound when
// the user has no active profile.
func (r *ProfileRepo) GetActive(ctx context.Context, userID uint64) (model.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? AND is_active=1 LIMIT 1", userID))
	if err == sql.ErrNoRows {
		return model.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// SetActive flips activation to the given profile inside one transaction:
// clear the flag on the whole set, then raise it on the target. The two
// statements run atomically so the at-most-one-active invariant holds even
// under concurrent switches.
func (r *ProfileRepo) SetActive(ctx context.Context, id, userID uint64) (model.Profile, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Profile{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE profiles SET is_active=0 WHERE user_id=? AND is_active=1", userID); err != nil {
		return model.Profile{}, err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE profiles SET is_active=1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return model.Profile{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Profile{}, err
	}
	if n == 0 {
		return model.Profile{}, ErrProfileNotFound
	}
	p, err := scanProfile(tx.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id=? AND user_id=? LIMIT 1", id, userID))
	if err != nil {
		return model.Profile{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// DeleteByIDAndOwner removes a profile. The active profile cannot be
// deleted; callers must switch first.
func (r *ProfileRepo) DeleteByIDAndOwner(ctx context.Context, id, userID uint64) error {
	var isActive bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT is_active FROM profiles WHERE id=? AND user_id=? LIMIT 1", id, userID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return ErrProfileNotFound
	}
	if err != nil {
		return err
	}
	if isActive {
		return ErrProfileActive
	}
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM profiles WHERE id=? AND user_id=? AND is_active=0", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
