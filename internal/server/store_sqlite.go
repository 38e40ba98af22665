package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/snapflowhq/snapflow/internal/experience"
)

// SQLiteStore implements Store over a per-project libSQL database.
// Snapshots, slot maps, responses, and outputs are JSONB columns; version
// counters are plain columns so increments stay atomic single statements.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// --- experiences ---

func scanExperience(row interface{ Scan(...any) error }) (experienceRecord, error) {
	var rec experienceRecord
	var pubVersion sql.NullInt64
	var draftJSON string
	var pubJSON sql.NullString
	err := row.Scan(&rec.ID, &rec.Name, &rec.Profile, &rec.DraftVersion, &pubVersion,
		&draftJSON, &pubJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if pubVersion.Valid {
		rec.PublishedVersion = &pubVersion.Int64
	}
	if err := json.Unmarshal([]byte(draftJSON), &rec.Draft); err != nil {
		return rec, err
	}
	if pubJSON.Valid {
		var snap experience.Snapshot
		if err := json.Unmarshal([]byte(pubJSON.String), &snap); err != nil {
			return rec, err
		}
		rec.Published = &snap
	}
	return rec, nil
}

const experienceCols = `id, name, profile, draft_version, published_version,
	json(draft), CASE WHEN published IS NULL THEN NULL ELSE json(published) END,
	created_at, updated_at`

func (s *SQLiteStore) ListExperiences(ctx context.Context) ([]experienceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+experienceCols+` FROM experiences ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []experienceRecord
	for rows.Next() {
		rec, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateExperience(ctx context.Context, name string, profile experience.Profile, draft experience.Snapshot) (experienceRecord, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return experienceRecord{}, err
	}
	id, now := newID(), nowUTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO experiences (id, name, profile, draft, created_at, updated_at)
		VALUES (?, ?, ?, jsonb(?), ?, ?)
	`, id, name, string(profile), string(data), now, now)
	if err != nil {
		return experienceRecord{}, err
	}
	return s.GetExperience(ctx, id)
}

func (s *SQLiteStore) GetExperience(ctx context.Context, id string) (experienceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experienceCols+` FROM experiences WHERE id = ?`, id)
	return scanExperience(row)
}

// UpdateExperienceDraft replaces the draft snapshot and bumps the draft
// version by exactly one in the same statement, so concurrent editors
// never skip or reuse a version.
func (s *SQLiteStore) UpdateExperienceDraft(ctx context.Context, id, name string, draft experience.Snapshot) (experienceRecord, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return experienceRecord{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE experiences
		SET name = ?, draft = jsonb(?), draft_version = draft_version + 1, updated_at = ?
		WHERE id = ?
	`, name, string(data), nowUTC(), id)
	if err != nil {
		return experienceRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return experienceRecord{}, ErrNotFound
	}
	return s.GetExperience(ctx, id)
}

// PublishExperience copies the entire draft to published and stamps the
// published version to the draft version at this moment. Re-publishing
// with no new edits is a no-op beyond the timestamp.
func (s *SQLiteStore) PublishExperience(ctx context.Context, id string) (experienceRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE experiences
		SET published = draft, published_version = draft_version, updated_at = ?
		WHERE id = ?
	`, nowUTC(), id)
	if err != nil {
		return experienceRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return experienceRecord{}, ErrNotFound
	}
	return s.GetExperience(ctx, id)
}

func (s *SQLiteStore) DeleteExperience(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM experiences WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ExperienceHasSessions(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE experience_id = ?`, id).Scan(&count)
	return count > 0, err
}

// --- events ---

func scanEvent(row interface{ Scan(...any) error }) (eventRecord, error) {
	var rec eventRecord
	var pubVersion sql.NullInt64
	var draftJSON string
	var pubJSON sql.NullString
	err := row.Scan(&rec.ID, &rec.Name, &rec.DraftVersion, &pubVersion,
		&draftJSON, &pubJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if pubVersion.Valid {
		rec.PublishedVersion = &pubVersion.Int64
	}
	if err := json.Unmarshal([]byte(draftJSON), &rec.Draft); err != nil {
		return rec, err
	}
	if pubJSON.Valid {
		var slots experience.SlotMap
		if err := json.Unmarshal([]byte(pubJSON.String), &slots); err != nil {
			return rec, err
		}
		rec.Published = &slots
	}
	return rec, nil
}

const eventCols = `id, name, draft_version, published_version,
	json(draft), CASE WHEN published IS NULL THEN NULL ELSE json(published) END,
	created_at, updated_at`

func (s *SQLiteStore) ListEvents(ctx context.Context) ([]eventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, name string, draft experience.SlotMap) (eventRecord, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return eventRecord{}, err
	}
	id, now := newID(), nowUTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, draft, created_at, updated_at)
		VALUES (?, ?, jsonb(?), ?, ?)
	`, id, name, string(data), now, now)
	if err != nil {
		return eventRecord{}, err
	}
	return s.GetEvent(ctx, id)
}

func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (eventRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func (s *SQLiteStore) UpdateEventDraft(ctx context.Context, id, name string, draft experience.SlotMap) (eventRecord, error) {
	data, err := json.Marshal(draft)
	if err != nil {
		return eventRecord{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET name = ?, draft = jsonb(?), draft_version = draft_version + 1, updated_at = ?
		WHERE id = ?
	`, name, string(data), nowUTC(), id)
	if err != nil {
		return eventRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return eventRecord{}, ErrNotFound
	}
	return s.GetEvent(ctx, id)
}

func (s *SQLiteStore) PublishEvent(ctx context.Context, id string) (eventRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET published = draft, published_version = draft_version, updated_at = ?
		WHERE id = ?
	`, nowUTC(), id)
	if err != nil {
		return eventRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return eventRecord{}, ErrNotFound
	}
	return s.GetEvent(ctx, id)
}

func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EventsReferencing reports whether any event's draft or published slot
// wiring points at the experience. Event counts are small, so scanning in
// memory beats JSON path queries here.
func (s *SQLiteStore) EventsReferencing(ctx context.Context, experienceID string) (bool, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return false, err
	}
	for _, ev := range events {
		maps := []experience.SlotMap{ev.Draft}
		if ev.Published != nil {
			maps = append(maps, *ev.Published)
		}
		for _, m := range maps {
			for _, slot := range experience.JourneyOrder {
				if m.Get(slot) == experienceID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (s *SQLiteStore) EventHasSessions(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE event_id = ?`, id).Scan(&count)
	return count > 0, err
}

// --- guests ---

func (s *SQLiteStore) CreateGuest(ctx context.Context, name string) (guestRecord, error) {
	rec := guestRecord{
		ID:        newID(),
		Token:     newID(),
		Name:      name,
		Completed: []string{},
		CreatedAt: nowUTC(),
	}
	completed, _ := json.Marshal(rec.Completed)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guests (id, token, name, completed, created_at)
		VALUES (?, ?, ?, jsonb(?), ?)
	`, rec.ID, rec.Token, rec.Name, string(completed), rec.CreatedAt)
	if err != nil {
		return guestRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) GuestFromToken(ctx context.Context, token string) (guestRecord, error) {
	var rec guestRecord
	var completedJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token, name, json(completed), created_at
		FROM guests WHERE token = ?
	`, token).Scan(&rec.ID, &rec.Token, &rec.Name, &completedJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(completedJSON), &rec.Completed); err != nil {
		return rec, err
	}
	return rec, nil
}

// MarkCompleted records that the guest finished the experience, for
// pregate/preshare re-entry gating. Idempotent.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, guestID, experienceID string) error {
	var completedJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(completed) FROM guests WHERE id = ?`, guestID).Scan(&completedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var completed []string
	if err := json.Unmarshal([]byte(completedJSON), &completed); err != nil {
		return err
	}
	for _, id := range completed {
		if id == experienceID {
			return nil
		}
	}
	completed = append(completed, experienceID)
	data, _ := json.Marshal(completed)
	_, err = s.db.ExecContext(ctx,
		`UPDATE guests SET completed = jsonb(?) WHERE id = ?`, string(data), guestID)
	return err
}

// --- sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, rec sessionRecord) (sessionRecord, error) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	now := nowUTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if rec.Responses == nil {
		rec.Responses = experience.ResponseSet{}
	}
	if rec.Outputs == nil {
		rec.Outputs = experience.OutputSet{}
	}
	responses, err := json.Marshal(rec.Responses)
	if err != nil {
		return sessionRecord{}, err
	}
	outputs, err := json.Marshal(rec.Outputs)
	if err != nil {
		return sessionRecord{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, event_id, experience_id, guest_id, slot, mode, source,
			status, step_index, responses, outputs, pregate_session_id,
			created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, jsonb(?), jsonb(?), NULLIF(?, ''), ?, ?, ?)
	`, rec.ID, rec.EventID, rec.ExperienceID, rec.GuestID, string(rec.Slot), string(rec.Mode),
		string(rec.Source), string(rec.Status), rec.StepIndex, string(responses), string(outputs),
		rec.PregateSessionID, rec.CreatedAt, rec.UpdatedAt, rec.CompletedAt)
	if err != nil {
		return sessionRecord{}, err
	}
	return rec, nil
}

const sessionCols = `id, event_id, experience_id, guest_id, slot, mode, source,
	status, step_index, json(responses), json(outputs),
	COALESCE(pregate_session_id, ''), created_at, updated_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (sessionRecord, error) {
	var rec sessionRecord
	var responsesJSON, outputsJSON string
	var completedAt sql.NullString
	err := row.Scan(&rec.ID, &rec.EventID, &rec.ExperienceID, &rec.GuestID, &rec.Slot,
		&rec.Mode, &rec.Source, &rec.Status, &rec.StepIndex, &responsesJSON, &outputsJSON,
		&rec.PregateSessionID, &rec.CreatedAt, &rec.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.String
	}
	if err := json.Unmarshal([]byte(responsesJSON), &rec.Responses); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(outputsJSON), &rec.Outputs); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (sessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// SaveProgress overwrites the session's full progress state. The runtime
// always re-sends the latest complete state, so the last write wins; there
// is no partial merge.
func (s *SQLiteStore) SaveProgress(ctx context.Context, id string, stepIndex int, status experience.SessionStatus, responses experience.ResponseSet, outputs experience.OutputSet, completedAt *string) error {
	responsesJSON, err := json.Marshal(responses)
	if err != nil {
		return err
	}
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET step_index = ?, status = ?, responses = jsonb(?), outputs = jsonb(?),
			completed_at = COALESCE(?, completed_at), updated_at = ?
		WHERE id = ?
	`, stepIndex, string(status), string(responsesJSON), string(outputsJSON),
		completedAt, nowUTC(), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SessionsByExperience(ctx context.Context, experienceID string) ([]sessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE experience_id = ? ORDER BY created_at DESC`,
		experienceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
