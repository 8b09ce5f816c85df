package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

const liveSessionColumns = `id, created_by, title, emergency, status, started_at, ended_at, viewer_count, peak_viewers, recording_url`

// CreateLiveSession inserts the session row, its explicit target rows and
// the start event in one transaction.
func (s *pgStore) CreateLiveSession(ownerID int, title string, emergency bool, targets []int) (model.LiveSession, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return model.LiveSession{}, err
	}
	defer tx.Rollback()

	var sess model.LiveSession
	err = tx.Get(&sess, `
	INSERT INTO live_sessions (created_by, title, emergency, status, started_at, viewer_count, peak_viewers)
	VALUES ($1, $2, $3, 'active', now(), 0, 0)
	RETURNING `+liveSessionColumns+`;`, ownerID, title, emergency)
	if err != nil {
		log.Error().Err(err).Msg("CreateLiveSession failed")
		return model.LiveSession{}, err
	}

	for _, deviceID := range targets {
		if _, err := tx.Exec(`
		INSERT INTO live_session_targets (session_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;`, sess.ID, deviceID); err != nil {
			log.Error().Err(err).Int("session_id", sess.ID).Msg("failed to insert live session target")
			return model.LiveSession{}, err
		}
	}

	if _, err := tx.Exec(`
	INSERT INTO live_session_events (session_id, kind, created_at)
	VALUES ($1, 'started', now());`, sess.ID); err != nil {
		return model.LiveSession{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.LiveSession{}, err
	}
	return sess, nil
}

func (s *pgStore) GetLiveSession(id int) (model.LiveSession, error) {
	var sess model.LiveSession
	err := s.db.Get(&sess, `SELECT `+liveSessionColumns+` FROM live_sessions WHERE id = $1`, id)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int("session_id", id).Msg("GetLiveSession failed")
	}
	return sess, err
}

func (s *pgStore) ListLiveSessions(ownerID int) ([]model.LiveSession, error) {
	var out []model.LiveSession
	err := s.db.Select(&out, `
	SELECT `+liveSessionColumns+`
	  FROM live_sessions
	 WHERE created_by = $1
	 ORDER BY started_at DESC, id DESC;`, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("ListLiveSessions failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListLiveSessionTargets(sessionID int) ([]int, error) {
	var out []int
	err := s.db.Select(&out, `
	SELECT device_id FROM live_session_targets WHERE session_id = $1 ORDER BY device_id;`, sessionID)
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("ListLiveSessionTargets failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListLiveSessionViewers(sessionID int) ([]model.LiveSessionViewer, error) {
	var out []model.LiveSessionViewer
	err := s.db.Select(&out, `
	SELECT id, session_id, device_id, joined_at, left_at, watched_ms, quality
	  FROM live_session_viewers
	 WHERE session_id = $1
	 ORDER BY joined_at ASC, id ASC;`, sessionID)
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("ListLiveSessionViewers failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListLiveSessionEvents(sessionID int) ([]model.LiveSessionEvent, error) {
	var out []model.LiveSessionEvent
	err := s.db.Select(&out, `
	SELECT id, session_id, kind, detail, created_at
	  FROM live_session_events
	 WHERE session_id = $1
	 ORDER BY created_at ASC, id ASC;`, sessionID)
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("ListLiveSessionEvents failed")
		return nil, err
	}
	return out, nil
}

// HasActiveEmergencySession is a query-time check only; two near-simultaneous
// emergency starts can still race past it (known, accepted).
func (s *pgStore) HasActiveEmergencySession(ownerID int) (bool, error) {
	var exists bool
	err := s.db.Get(&exists, `
	SELECT EXISTS (
	  SELECT 1 FROM live_sessions
	   WHERE created_by = $1 AND emergency AND status = 'active'
	);`, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("HasActiveEmergencySession failed")
		return false, err
	}
	return exists, nil
}

// EndLiveSession flips the session to ended, closes every open viewer row
// (computing watch duration server-side) and logs the end event, atomically.
func (s *pgStore) EndLiveSession(id int, endedAt time.Time, reason string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
	UPDATE live_sessions
	   SET status = 'ended', ended_at = $2
	 WHERE id = $1 AND status = 'active';`, id, endedAt.UTC())
	if err != nil {
		log.Error().Err(err).Int("session_id", id).Msg("EndLiveSession failed")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec(`
	UPDATE live_session_viewers
	   SET left_at = $2,
	       watched_ms = (EXTRACT(EPOCH FROM ($2 - joined_at)) * 1000)::bigint
	 WHERE session_id = $1 AND left_at IS NULL;`, id, endedAt.UTC()); err != nil {
		return err
	}

	if _, err := tx.Exec(`
	INSERT INTO live_session_events (session_id, kind, detail, created_at)
	VALUES ($1, 'ended', $2, now());`, id, reason); err != nil {
		return err
	}

	return tx.Commit()
}

// AddLiveSessionViewer records the join and bumps viewer/peak counters.
// Returns the new viewer count.
func (s *pgStore) AddLiveSessionViewer(sessionID, deviceID int, joinedAt time.Time) (int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
	INSERT INTO live_session_viewers (session_id, device_id, joined_at)
	VALUES ($1, $2, $3);`, sessionID, deviceID, joinedAt.UTC()); err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("AddLiveSessionViewer failed")
		return 0, err
	}

	var count int
	if err := tx.Get(&count, `
	UPDATE live_sessions
	   SET viewer_count = viewer_count + 1,
	       peak_viewers = GREATEST(peak_viewers, viewer_count + 1)
	 WHERE id = $1
	RETURNING viewer_count;`, sessionID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// CloseLiveSessionViewer records the leave, computes watch duration and
// decrements the viewer counter. Returns the new viewer count.
func (s *pgStore) CloseLiveSessionViewer(sessionID, deviceID int, leftAt time.Time) (int, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
	UPDATE live_session_viewers
	   SET left_at = $3,
	       watched_ms = (EXTRACT(EPOCH FROM ($3 - joined_at)) * 1000)::bigint
	 WHERE session_id = $1 AND device_id = $2 AND left_at IS NULL;`,
		sessionID, deviceID, leftAt.UTC())
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("CloseLiveSessionViewer failed")
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, sql.ErrNoRows
	}

	var count int
	if err := tx.Get(&count, `
	UPDATE live_sessions
	   SET viewer_count = GREATEST(viewer_count - 1, 0)
	 WHERE id = $1
	RETURNING viewer_count;`, sessionID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *pgStore) SetViewerQuality(sessionID, deviceID int, quality string) error {
	_, err := s.db.Exec(`
	UPDATE live_session_viewers
	   SET quality = $3
	 WHERE session_id = $1 AND device_id = $2 AND left_at IS NULL;`,
		sessionID, deviceID, quality)
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Msg("SetViewerQuality failed")
	}
	return err
}

func (s *pgStore) RecordLiveSessionEvent(sessionID int, kind string, detail *string) error {
	_, err := s.db.Exec(`
	INSERT INTO live_session_events (session_id, kind, detail, created_at)
	VALUES ($1, $2, $3, now());`, sessionID, kind, detail)
	if err != nil {
		log.Error().Err(err).Int("session_id", sessionID).Str("kind", kind).Msg("RecordLiveSessionEvent failed")
	}
	return err
}

func (s *pgStore) DeleteLiveSession(id, ownerID int) error {
	res, err := s.db.Exec(`DELETE FROM live_sessions WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		log.Error().Err(err).Int("session_id", id).Msg("DeleteLiveSession failed")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
