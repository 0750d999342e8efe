package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is returned by every Store operation when the underlying
// storage engine is failing. Callers must treat it as degraded mode, not
// a fatal error (§4.1, §7): classification and dispatch continue, but
// lesson injection and outcome recording become no-ops.
var ErrUnavailable = errors.New("learning store unavailable")

const taskHistoryOutputMaxBytes = 10000

// Store is the Learning Store (C1): a modernc.org/sqlite-backed,
// write-ahead-logged embedded database holding lessons and task history
// (§6: "a single transactional store file").
type Store struct {
	db     *sql.DB
	outage outageTracker
}

// Open opens (creating if absent) the store file at path, enables WAL
// mode, and ensures the schema is current.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; modernc.org/sqlite serializes internally anyway

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Degraded reports whether the store is in a contiguous outage.
func (s *Store) Degraded() bool {
	return s.outage.degraded()
}

func (s *Store) fail(err error) error {
	s.outage.recordFailure(err)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *Store) ok() {
	s.outage.recordSuccess()
}

// SaveLesson inserts lesson, computing error_pattern from error_message
// when absent, and returns its id.
func (s *Store) SaveLesson(ctx context.Context, lesson Lesson) (int64, error) {
	if lesson.ErrorPattern == "" && lesson.ErrorMessage != "" {
		lesson.ErrorPattern = Canonicalize(lesson.ErrorMessage)
	}
	if lesson.RelevanceScore == 0 {
		lesson.RelevanceScore = 1.0
	}
	now := time.Now().UTC()
	lesson.CreatedAt, lesson.UpdatedAt = now, now

	tags := strings.Join(lesson.Tags, ",")

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons (
			task_type, category, tags, task_description, success,
			error_message, error_pattern, root_cause, solution, lesson_summary,
			attempts_before_success, time_to_resolution_ms, relevance_score,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		lesson.TaskType, lesson.Category, tags, lesson.TaskDescription, lesson.Success,
		lesson.ErrorMessage, lesson.ErrorPattern, lesson.RootCause, lesson.Solution, lesson.LessonSummary,
		lesson.AttemptsBeforeSuccess, lesson.TimeToResolutionMs, lesson.RelevanceScore,
		lesson.CreatedAt.Format(time.RFC3339Nano), lesson.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, s.fail(err)
	}
	s.ok()

	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.fail(err)
	}
	return id, nil
}

// QueryLessons returns lessons matching filter, ordered by
// relevance_score DESC, created_at DESC, honoring filter.Limit (§4.1).
func (s *Store) QueryLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	var where []string
	var args []any

	if filter.TaskType != "" {
		where = append(where, "task_type = ?")
		args = append(args, filter.TaskType)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Success != nil {
		where = append(where, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.ErrorPatternContains != "" {
		where = append(where, "error_pattern LIKE ?")
		args = append(args, "%"+filter.ErrorPatternContains+"%")
	}
	if filter.SearchText != "" {
		where = append(where, "(task_description LIKE ? OR lesson_summary LIKE ? OR solution LIKE ?)")
		like := "%" + filter.SearchText + "%"
		args = append(args, like, like, like)
	}

	query := "SELECT id, task_type, category, tags, task_description, success, error_message, error_pattern, root_cause, solution, lesson_summary, attempts_before_success, time_to_resolution_ms, relevance_score, created_at, updated_at FROM lessons"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY relevance_score DESC, created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(err)
	}
	defer rows.Close()

	var lessons []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, s.fail(err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(err)
	}
	s.ok()
	return lessons, nil
}

// FindLessonsForError canonicalizes errorMessage and delegates to
// QueryLessons({error_pattern, success=true, limit}) (§4.1).
func (s *Store) FindLessonsForError(ctx context.Context, errorMessage string, limit int) ([]Lesson, error) {
	if limit <= 0 {
		limit = 5
	}
	success := true
	return s.QueryLessons(ctx, LessonFilter{
		ErrorPatternContains: Canonicalize(errorMessage),
		Success:              &success,
		Limit:                limit,
	})
}

// SaveTaskHistory inserts entry, truncating Output to 10,000 bytes, and
// returns its id.
func (s *Store) SaveTaskHistory(ctx context.Context, entry TaskHistory) (int64, error) {
	if len(entry.Output) > taskHistoryOutputMaxBytes {
		entry.Output = entry.Output[:taskHistoryOutputMaxBytes]
	}
	entry.CreatedAt = time.Now().UTC()

	lessonIDs, err := json.Marshal(entry.LessonIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal lesson ids: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO task_history (task_type, persona_id, category, chat_id, success, duration_ms, output, lesson_ids, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		entry.TaskType, entry.PersonaID, entry.Category, entry.ChatID, entry.Success,
		entry.DurationMs, entry.Output, string(lessonIDs), entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, s.fail(err)
	}
	s.ok()

	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.fail(err)
	}
	return id, nil
}

// Stats returns aggregate lesson counts. When the store is unavailable,
// it returns a zero Stats with Unavailable=true rather than an error, so
// callers building a health payload need no special-case branch.
func (s *Store) Stats(ctx context.Context) Stats {
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(success), 0) FROM lessons")
	var total, successful int
	if err := row.Scan(&total, &successful); err != nil {
		s.fail(err)
		return Stats{Unavailable: true}
	}
	s.ok()
	return Stats{Total: total, Successful: successful, Failed: total - successful}
}

func scanLesson(rows *sql.Rows) (Lesson, error) {
	var l Lesson
	var tags, createdAt, updatedAt string
	if err := rows.Scan(
		&l.ID, &l.TaskType, &l.Category, &tags, &l.TaskDescription, &l.Success,
		&l.ErrorMessage, &l.ErrorPattern, &l.RootCause, &l.Solution, &l.LessonSummary,
		&l.AttemptsBeforeSuccess, &l.TimeToResolutionMs, &l.RelevanceScore,
		&createdAt, &updatedAt,
	); err != nil {
		return Lesson{}, err
	}
	if tags != "" {
		l.Tags = strings.Split(tags, ",")
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		l.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		l.UpdatedAt = t
	}
	return l, nil
}
