package dating

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository supplies profiles and interaction history. Implementations
// return ErrProfileNotFound for unknown ids.
type Repository interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	FindCandidates(ctx context.Context, requester *Profile, limit int) ([]Profile, error)
	GetExclusions(ctx context.Context, userID string) (ExclusionSet, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// profileRow is the flat column layout of the profiles table.
type profileRow struct {
	ID               string          `db:"id"`
	BirthDate        time.Time       `db:"birth_date"`
	Gender           string          `db:"gender"`
	Interests        pq.StringArray  `db:"interests"`
	Latitude         sql.NullFloat64 `db:"latitude"`
	Longitude        sql.NullFloat64 `db:"longitude"`
	PreferredGenders pq.StringArray  `db:"preferred_genders"`
	PreferredAgeMin  sql.NullInt32   `db:"preferred_age_min"`
	PreferredAgeMax  sql.NullInt32   `db:"preferred_age_max"`
	MaxDistanceKm    sql.NullFloat64 `db:"max_distance_km"`
	Smoking          sql.NullString  `db:"smoking"`
	Drinking         sql.NullString  `db:"drinking"`
	Children         sql.NullString  `db:"children"`
	LastActiveAt     sql.NullTime    `db:"last_active_at"`
}

const profileColumns = `
    id, birth_date, gender, interests, latitude, longitude,
    preferred_genders, preferred_age_min, preferred_age_max, max_distance_km,
    smoking, drinking, children, last_active_at`

func (row *profileRow) toProfile() Profile {
	p := Profile{
		ID:        row.ID,
		BirthDate: row.BirthDate,
		Gender:    row.Gender,
		Interests: []string(row.Interests),
		Preferences: Preferences{
			Genders: []string(row.PreferredGenders),
		},
		Lifestyle: Lifestyle{
			Smoking:  nullString(row.Smoking),
			Drinking: nullString(row.Drinking),
			Children: nullString(row.Children),
		},
	}

	if row.Latitude.Valid && row.Longitude.Valid {
		p.Location = &Coordinates{Latitude: row.Latitude.Float64, Longitude: row.Longitude.Float64}
	}
	if row.PreferredAgeMin.Valid && row.PreferredAgeMax.Valid {
		p.Preferences.AgeRange = &AgeRange{Min: int(row.PreferredAgeMin.Int32), Max: int(row.PreferredAgeMax.Int32)}
	}
	if row.MaxDistanceKm.Valid {
		d := row.MaxDistanceKm.Float64
		p.Preferences.MaxDistanceKm = &d
	}
	if row.LastActiveAt.Valid {
		t := row.LastActiveAt.Time
		p.LastActiveAt = &t
	}
	return p
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *postgresRepository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var row profileRow
	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	p := row.toProfile()
	return &p, nil
}

// FindCandidates returns up to limit recently active profiles the requester
// has not interacted with. The gender preference is applied in SQL to keep
// the pool relevant; the in-process filter still enforces every rule.
func (r *postgresRepository) FindCandidates(ctx context.Context, requester *Profile, limit int) ([]Profile, error) {
	genders := make([]string, 0, len(requester.Preferences.Genders))
	for _, g := range requester.Preferences.Genders {
		genders = append(genders, strings.ToLower(g))
	}

	query := `
        SELECT` + profileColumns + `
        FROM profiles p
        WHERE p.id <> $1
              AND (cardinality($2::text[]) = 0 OR lower(p.gender) = ANY($2))
              AND NOT EXISTS (
                  SELECT 1 FROM interactions i
                  WHERE i.user_id = $1 AND i.target_id = p.id
              )
        ORDER BY p.last_active_at DESC NULLS LAST, p.id
        LIMIT $3
    `

	var rows []profileRow
	if err := r.db.SelectContext(ctx, &rows, query, requester.ID, pq.Array(genders), limit); err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, rows[i].toProfile())
	}
	return profiles, nil
}

// GetExclusions returns everyone the user liked, passed, matched or
// blocked, plus everyone who blocked the user.
func (r *postgresRepository) GetExclusions(ctx context.Context, userID string) (ExclusionSet, error) {
	query := `
        SELECT target_id FROM interactions WHERE user_id = $1
        UNION
        SELECT user_id FROM interactions WHERE target_id = $1 AND action = 'block'
    `

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return NewExclusionSet(ids...), nil
}
