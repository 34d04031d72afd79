package postgres

import (
	"context"
	"errors"
	"fmt"
	"import-service/internal/contextkeys"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB - часть pgxpool.Pool, которая нужна репозиторию
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	placeColumns = []string{
		"id", "name", "address", "latitude", "longitude", "geohash", "city", "country",
		"category", "rating", "price_level", "external_place_id", "precision", "created_at",
	}
	listPlaceColumns = []string{"list_id", "place_id", "display_order", "note"}
)

// ListRepository сохраняет агрегат списка в одной транзакции
type ListRepository struct {
	db DB
}

func NewListRepository(db DB) (*ListRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListRepository{db: db}, nil
}

// SaveList пишет строку списка, места и членства. Любая ошибка откатывает все.
func (r *ListRepository) SaveList(ctx context.Context, list *domain.ListAggregate) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresListRepository",
		"list_id":   list.ID.String(),
	})

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO lists (
			id, title, description, owner_id, is_public, is_paid, price,
			center_latitude, center_longitude, center_geohash, city, category,
			place_count, source_file, import_job_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		list.ID, list.Title, list.Description, list.OwnerID, list.IsPublic, list.IsPaid, list.Price,
		list.CenterLatitude, list.CenterLongitude, list.CenterGeohash, list.City, list.Category,
		list.PlaceCount, list.SourceFile, list.ImportJobID, list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert list: %v", domain.ErrPersistence, err)
	}

	placeRows, membershipRows := toCopyRows(list)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"places"}, placeColumns, pgx.CopyFromRows(placeRows)); err != nil {
		return fmt.Errorf("%w: failed to copy places: %v", domain.ErrPersistence, err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"list_places"}, listPlaceColumns, pgx.CopyFromRows(membershipRows)); err != nil {
		return fmt.Errorf("%w: failed to copy list memberships: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", domain.ErrPersistence, err)
	}

	logger.Debug("List committed", port.Fields{"places": len(placeRows)})
	return nil
}

// toCopyRows готовит строки для COPY в порядке placeColumns и listPlaceColumns
func toCopyRows(list *domain.ListAggregate) ([][]interface{}, [][]interface{}) {
	places := make([][]interface{}, 0, len(list.Places))
	memberships := make([][]interface{}, 0, len(list.Places))
	for _, lp := range list.Places {
		p := lp.Place
		places = append(places, []interface{}{
			lp.PlaceID, p.Name, p.Address, p.Latitude, p.Longitude, p.Geohash, p.City, p.Country,
			p.Category, p.Rating, p.PriceLevel, p.ExternalPlaceID, string(p.Precision), list.CreatedAt,
		})
		memberships = append(memberships, []interface{}{list.ID, lp.PlaceID, lp.DisplayOrder, lp.Note})
	}
	return places, memberships
}

func (r *ListRepository) GetList(ctx context.Context, listID uuid.UUID) (*domain.ListAggregate, error) {
	list := &domain.ListAggregate{}
	err := r.db.QueryRow(ctx, `
		SELECT id, title, description, owner_id, is_public, is_paid, price::float8,
			center_latitude, center_longitude, center_geohash, city, category,
			place_count, source_file, import_job_id, created_at
		FROM lists WHERE id = $1`, listID,
	).Scan(
		&list.ID, &list.Title, &list.Description, &list.OwnerID, &list.IsPublic, &list.IsPaid, &list.Price,
		&list.CenterLatitude, &list.CenterLongitude, &list.CenterGeohash, &list.City, &list.Category,
		&list.PlaceCount, &list.SourceFile, &list.ImportJobID, &list.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get list %s: %w", listID, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT lp.place_id, lp.display_order, lp.note,
			p.name, p.address, p.latitude, p.longitude, p.geohash, p.city, p.country,
			p.category, p.rating, p.price_level, p.external_place_id, p.precision
		FROM list_places lp
		JOIN places p ON p.id = lp.place_id
		WHERE lp.list_id = $1
		ORDER BY lp.display_order`, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query places of list %s: %w", listID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var lp domain.ListPlace
		var precision string
		if err := rows.Scan(
			&lp.PlaceID, &lp.DisplayOrder, &lp.Note,
			&lp.Place.Name, &lp.Place.Address, &lp.Place.Latitude, &lp.Place.Longitude, &lp.Place.Geohash,
			&lp.Place.City, &lp.Place.Country, &lp.Place.Category, &lp.Place.Rating, &lp.Place.PriceLevel,
			&lp.Place.ExternalPlaceID, &precision,
		); err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		lp.Place.Precision = domain.Precision(precision)
		lp.Place.Note = lp.Note
		list.Places = append(list.Places, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places of list %s: %w", listID, err)
	}
	return list, nil
}

var _ port.ListRepositoryPort = (*ListRepository)(nil)
