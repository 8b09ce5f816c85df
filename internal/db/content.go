package db

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

const contentColumns = `id, name, type, url, size_bytes, duration_ms, thumbnail_url, is_default, created_by, created_at`

func (s *pgStore) CreateContent(name, contentType, url string, sizeBytes, durationMs *int64, thumbnailURL *string, createdBy int) (model.Content, error) {
	var c model.Content
	q := `
	INSERT INTO content (name, type, url, size_bytes, duration_ms, thumbnail_url, is_default, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, $7, now())
	RETURNING ` + contentColumns + `;`
	if err := s.db.Get(&c, q, name, contentType, url, sizeBytes, durationMs, thumbnailURL, createdBy); err != nil {
		log.Error().Err(err).Msg("failed to create content")
		return model.Content{}, err
	}
	return c, nil
}

func (s *pgStore) GetContentByID(id int) (model.Content, error) {
	var c model.Content
	err := s.db.Get(&c, `SELECT `+contentColumns+` FROM content WHERE id = $1`, id)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int("content_id", id).Msg("failed to get content by id")
	}
	return c, err
}

func (s *pgStore) ListContent(ownerID int) ([]model.Content, error) {
	var out []model.Content
	err := s.db.Select(&out, `
		SELECT `+contentColumns+`
		FROM content
		WHERE created_by = $1
		ORDER BY id
		`, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list content")
		return nil, err
	}
	return out, nil
}

// SetDefaultContent flags one item as the owner's fallback; any previous
// default is unflagged in the same transaction.
func (s *pgStore) SetDefaultContent(ownerID, contentID int) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE content SET is_default = false WHERE created_by = $1`, ownerID); err != nil {
		return err
	}
	res, err := tx.Exec(`UPDATE content SET is_default = true WHERE id = $1 AND created_by = $2`, contentID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

func (s *pgStore) DeleteContent(id, ownerID int) error {
	res, err := s.db.Exec(`DELETE FROM content WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		log.Error().Err(err).Int("content_id", id).Msg("failed to delete content")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
