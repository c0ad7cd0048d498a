package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements mediaflow.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) mediaflow.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) mediaflow.Repository {
	return &Repository{db: pool}
}

// collectionTable maps a collection kind to the owning entity table used
// for existence checks.
func collectionTable(kind mediaflow.CollectionKind) (string, error) {
	switch kind {
	case mediaflow.CollectionPost:
		return "posts", nil
	case mediaflow.CollectionGroup:
		return "groups", nil
	case mediaflow.CollectionCommunity:
		return "communities", nil
	case mediaflow.CollectionDomain:
		return "domains", nil
	case mediaflow.CollectionPoint:
		return "points", nil
	default:
		return "", fmt.Errorf("unknown collection kind: %s", kind)
	}
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *mediaflow.MediaAsset) error {
	storage, public, formats, err := marshalAssetJSON(asset)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO media_assets (
			id, tenant_id, owner_id, status, storage_meta, public_meta,
			formats, enriched, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		asset.ID, asset.TenantID, asset.OwnerID, string(asset.Status),
		storage, public, formats, asset.Enriched,
		asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create asset", err)
	}

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediaflow.MediaAsset, error) {
	query := `
		SELECT id, tenant_id, owner_id, status, storage_meta, public_meta,
		       formats, enriched, created_at, updated_at
		FROM media_assets WHERE id = $1 AND deleted_at IS NULL`

	return r.scanAsset(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *mediaflow.MediaAsset) error {
	storage, public, formats, err := marshalAssetJSON(asset)
	if err != nil {
		return err
	}

	query := `
		UPDATE media_assets SET
			tenant_id = $2, owner_id = $3, status = $4, storage_meta = $5,
			public_meta = $6, formats = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.TenantID, asset.OwnerID, string(asset.Status),
		storage, public, formats, asset.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return mediaflow.ErrAssetNotFound
	}

	return nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	// Soft delete: set deleted_at, leave the row in place
	query := `UPDATE media_assets SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return mediaflow.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) MarkAssetEnriched(ctx context.Context, id uuid.UUID) (bool, error) {
	// Single statement claim; exactly one concurrent caller flips the flag.
	query := `
		UPDATE media_assets SET enriched = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND enriched = FALSE`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, r.handlePostgresError("mark asset enriched", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "already enriched" from "no such asset".
	var enriched bool
	err = r.db.QueryRow(ctx,
		`SELECT enriched FROM media_assets WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&enriched)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, mediaflow.ErrAssetNotFound
		}
		return false, r.handlePostgresError("mark asset enriched", err)
	}

	return false, nil
}

// Thumbnail operations

func (r *Repository) CreateThumbnail(ctx context.Context, thumb *mediaflow.ThumbnailImage) error {
	query := `
		INSERT INTO media_thumbnails (id, asset_id, bucket, url, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		thumb.ID, thumb.AssetID, thumb.Bucket, thumb.URL, thumb.Position, thumb.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create thumbnail", err)
	}

	return nil
}

func (r *Repository) ListThumbnails(ctx context.Context, assetID uuid.UUID) ([]*mediaflow.ThumbnailImage, error) {
	query := `
		SELECT id, asset_id, bucket, url, position, created_at
		FROM media_thumbnails WHERE asset_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, assetID)
	if err != nil {
		return nil, r.handlePostgresError("list thumbnails", err)
	}
	defer rows.Close()

	var thumbs []*mediaflow.ThumbnailImage
	for rows.Next() {
		var thumb mediaflow.ThumbnailImage
		if err := rows.Scan(&thumb.ID, &thumb.AssetID, &thumb.Bucket,
			&thumb.URL, &thumb.Position, &thumb.CreatedAt); err != nil {
			return nil, err
		}
		thumbs = append(thumbs, &thumb)
	}

	return thumbs, rows.Err()
}

// Collection operations

func (r *Repository) FindCollection(ctx context.Context, target mediaflow.CollectionTarget) error {
	table, err := collectionTable(target.Kind)
	if err != nil {
		return err
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.db.QueryRow(ctx, query, target.ID).Scan(&exists); err != nil {
		return r.handlePostgresError("find collection", err)
	}
	if !exists {
		return mediaflow.ErrTargetNotFound
	}

	return nil
}

func (r *Repository) AttachToCollection(ctx context.Context, target mediaflow.CollectionTarget, assetID uuid.UUID) error {
	// position is a bigserial; insertion order is attachment order
	query := `
		INSERT INTO collection_media (kind, target_id, asset_id, created_at)
		VALUES ($1, $2, $3, NOW())`

	_, err := r.db.Exec(ctx, query, string(target.Kind), target.ID, assetID)
	if err != nil {
		return r.handlePostgresError("attach to collection", err)
	}

	return nil
}

func (r *Repository) ListCollectionAssets(ctx context.Context, target mediaflow.CollectionTarget) ([]*mediaflow.MediaAsset, error) {
	query := `
		SELECT a.id, a.tenant_id, a.owner_id, a.status, a.storage_meta,
		       a.public_meta, a.formats, a.enriched, a.created_at, a.updated_at
		FROM collection_media cm
		JOIN media_assets a ON a.id = cm.asset_id
		WHERE cm.kind = $1 AND cm.target_id = $2
		  AND a.deleted_at IS NULL AND a.status = $3
		ORDER BY cm.position ASC`

	rows, err := r.db.Query(ctx, query,
		string(target.Kind), target.ID, string(mediaflow.AssetStatusViewable))
	if err != nil {
		return nil, r.handlePostgresError("list collection assets", err)
	}
	defer rows.Close()

	var assets []*mediaflow.MediaAsset
	for rows.Next() {
		asset, err := r.scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// Helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanAsset(row rowScanner) (*mediaflow.MediaAsset, error) {
	var asset mediaflow.MediaAsset
	var status string
	var storage, public, formats []byte

	err := row.Scan(&asset.ID, &asset.TenantID, &asset.OwnerID, &status,
		&storage, &public, &formats, &asset.Enriched,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mediaflow.ErrAssetNotFound
		}
		return nil, err
	}

	asset.Status = mediaflow.AssetStatus(status)
	if err := json.Unmarshal(storage, &asset.Storage); err != nil {
		return nil, fmt.Errorf("decode storage_meta: %w", err)
	}
	if err := json.Unmarshal(public, &asset.Public); err != nil {
		return nil, fmt.Errorf("decode public_meta: %w", err)
	}
	if len(formats) > 0 {
		if err := json.Unmarshal(formats, &asset.Formats); err != nil {
			return nil, fmt.Errorf("decode formats: %w", err)
		}
	}

	return &asset, nil
}

func marshalAssetJSON(asset *mediaflow.MediaAsset) (storage, public, formats []byte, err error) {
	if storage, err = json.Marshal(asset.Storage); err != nil {
		return nil, nil, nil, fmt.Errorf("encode storage_meta: %w", err)
	}
	if public, err = json.Marshal(asset.Public); err != nil {
		return nil, nil, nil, fmt.Errorf("encode public_meta: %w", err)
	}
	if formats, err = json.Marshal(asset.Formats); err != nil {
		return nil, nil, nil, fmt.Errorf("encode formats: %w", err)
	}
	return storage, public, formats, nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record not found")
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
