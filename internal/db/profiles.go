package db

import (
	"context"
	"fmt"

	"github.com/jonathan/nexthire/internal/objectid"
)

// -----------------------------------------------------------------------------
// Profile Methods
// -----------------------------------------------------------------------------

const profileColumns = `id, user_id, headline, bio, location, skills, experience, education,
	social_links, created_at, updated_at`

func scanProfile(row rowScanner) (*UserProfile, error) {
	var p UserProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Headline, &p.Bio, &p.Location, &p.Skills, &p.Experience,
		&p.Education, &p.SocialLinks, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return &p, nil
}

// GetProfile retrieves the profile of userID. Returns nil, nil when absent.
func (db *DB) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// EnsureProfile creates an empty profile for userID unless one exists.
// It reports whether a profile was created.
func (db *DB) EnsureProfile(ctx context.Context, userID, headline string) (*UserProfile, bool, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (id, user_id, headline)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING
		 RETURNING `+profileColumns,
		objectid.New(), userID, headline,
	))
	if err == nil {
		return p, true, nil
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("failed to create profile: %w", err)
	}

	p, err = db.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if p == nil {
		return nil, false, fmt.Errorf("failed to create profile: profile for %s vanished", userID)
	}
	return p, false, nil
}

// jsonArg passes raw JSON through, or NULL when empty.
func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// UpsertProfile creates or updates the profile of userID. Fields left nil
// keep their stored value.
func (db *DB) UpsertProfile(ctx context.Context, userID string, u ProfileUpdate) (*UserProfile, error) {
	var skills any
	if u.Skills != nil {
		skills = u.Skills
	}

	p, err := scanProfile(db.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (id, user_id, headline, bio, location, skills, experience,
		        education, social_links)
		 VALUES ($1, $2, COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''),
		         COALESCE($6::text[], '{}'), COALESCE($7::jsonb, '[]'::jsonb),
		         COALESCE($8::jsonb, '[]'::jsonb), $9::jsonb)
		 ON CONFLICT (user_id) DO UPDATE SET
		     headline     = COALESCE($3, user_profiles.headline),
		     bio          = COALESCE($4, user_profiles.bio),
		     location     = COALESCE($5, user_profiles.location),
		     skills       = COALESCE($6::text[], user_profiles.skills),
		     experience   = COALESCE($7::jsonb, user_profiles.experience),
		     education    = COALESCE($8::jsonb, user_profiles.education),
		     social_links = COALESCE($9::jsonb, user_profiles.social_links),
		     updated_at   = NOW()
		 RETURNING `+profileColumns,
		objectid.New(), userID, u.Headline, u.Bio, u.Location, skills,
		jsonArg(u.Experience), jsonArg(u.Education), jsonArg(u.SocialLinks),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}

// DeleteProfile removes the profile of userID and, through the foreign
// key, the user's applications. Reports whether a row was deleted.
func (db *DB) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
