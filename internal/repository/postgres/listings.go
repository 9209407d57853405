package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jobreach/jobreach/internal/domain"
)

// ListingRepository stores search runs and their canonical listings
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a listing repository
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// listingRow represents the database row structure
type listingRow struct {
	ID           uuid.UUID `db:"id"`
	RunID        uuid.UUID `db:"run_id"`
	Source       string    `db:"source"`
	URL          string    `db:"url"`
	Title        string    `db:"title"`
	Organization string    `db:"organization"`
	Location     string    `db:"location"`
	Description  string    `db:"description"`
	IsSimulated  bool      `db:"is_simulated"`
	Signatures   []byte    `db:"signatures"`
	Sources      []byte    `db:"sources"`
	CapturedAt   time.Time `db:"captured_at"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *listingRow) toDomain() (domain.CanonicalListing, error) {
	listing := domain.CanonicalListing{
		RawListing: domain.RawListing{
			Source:       r.Source,
			URL:          r.URL,
			Title:        r.Title,
			Organization: r.Organization,
			Location:     r.Location,
			Description:  r.Description,
			IsSimulated:  r.IsSimulated,
			CapturedAt:   r.CapturedAt,
		},
	}
	if err := json.Unmarshal(r.Signatures, &listing.Signatures); err != nil {
		return listing, err
	}
	if err := json.Unmarshal(r.Sources, &listing.Sources); err != nil {
		return listing, err
	}
	return listing, nil
}

// SaveRun persists one orchestrated search run with its canonical
// listings. A listing already stored by an earlier run does not fail
// the save.
func (r *ListingRepository) SaveRun(ctx context.Context, query domain.Query, result *domain.MultiSourceResult) error {
	db := &DB{DB: r.db}
	err := db.Transaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO search_runs (id, keywords, location, total_unique, duplicates_removed, successful_sources, failed_sources, elapsed_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.RunID, query.Keywords, query.Location,
			result.TotalUnique, result.DuplicatesRemoved,
			pq.Array(result.SuccessfulSources), pq.Array(result.FailedSources),
			result.Elapsed.Milliseconds(),
		)
		if err != nil {
			return err
		}

		for _, listing := range result.Listings {
			signatures, err := json.Marshal(listing.Signatures)
			if err != nil {
				return err
			}
			contributing, err := json.Marshal(listing.Sources)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO listings (id, run_id, source, url, title, organization, location, description, is_simulated, signatures, sources, captured_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (url, title, organization) DO NOTHING`,
				uuid.New(), result.RunID, listing.Source, listing.URL,
				listing.Title, listing.Organization, listing.Location,
				listing.Description, listing.IsSimulated,
				signatures, contributing, listing.CapturedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.DatabaseError(err)
	}
	return nil
}

// ListByRun returns the listings stored for one run
func (r *ListingRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.CanonicalListing, error) {
	var rows []listingRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, run_id, source, url, title, organization, location, description, is_simulated, signatures, sources, captured_at, created_at
		FROM listings
		WHERE run_id = $1
		ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, domain.DatabaseError(err)
	}

	listings := make([]domain.CanonicalListing, 0, len(rows))
	for i := range rows {
		listing, err := rows[i].toDomain()
		if err != nil {
			return nil, domain.DatabaseError(err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// CountBySource returns stored listing counts grouped by source
func (r *ListingRepository) CountBySource(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Source string `db:"source"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT source, COUNT(*) AS count
		FROM listings
		GROUP BY source`)
	if err != nil {
		return nil, domain.DatabaseError(err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Source] = row.Count
	}
	return counts, nil
}
