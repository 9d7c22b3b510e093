// Package sqlite is the SQLite-backed implementation of the storage
// interfaces.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/mo"

	"github.com/atelierops/calcore/storage"
)

//go:embed schema.sql
var schema string

// Store handles database operations.
type Store struct {
	db *sql.DB
}

// New opens (and if necessary initializes) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const eventColumns = `id, title, description, event_type, start_time, end_time,
	is_all_day, recurrence, project_id, created_by, created_at, updated_at`

// FindEvents applies the conservative window predicate in SQL: the event's
// own interval overlaps the window, or it is recurring and anchored at or
// before the window end.
func (s *Store) FindEvents(ctx context.Context, windowStart, windowEnd time.Time, filter storage.EventFilter) ([]*storage.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE ((start_time <= ? AND COALESCE(end_time, start_time) >= ?)
			OR (recurrence IS NOT NULL AND start_time <= ?))`
	args := []any{windowEnd, windowStart, windowEnd}

	if filter.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY start_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	var events []*storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}

	for _, ev := range events {
		if err := s.loadAttendees(ctx, ev); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*storage.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadAttendees(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, event *storage.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO events
		(id, title, description, event_type, start_time, end_time, is_all_day,
		 recurrence, project_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Description, string(event.Type),
		event.StartTime, nullTime(event.EndTime), event.IsAllDay,
		nullString(event.Recurrence), nullString(event.ProjectID),
		event.CreatedBy, event.Created, event.Modified)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := insertAttendees(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdateEvent(ctx context.Context, event *storage.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE events SET
		title = ?, description = ?, event_type = ?, start_time = ?, end_time = ?,
		is_all_day = ?, recurrence = ?, project_id = ?, updated_at = ?
		WHERE id = ?`,
		event.Title, event.Description, string(event.Type), event.StartTime,
		nullTime(event.EndTime), event.IsAllDay, nullString(event.Recurrence),
		nullString(event.ProjectID), event.Modified, event.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = ?`, event.ID); err != nil {
		return fmt.Errorf("update attendees: %w", err)
	}
	if err := insertAttendees(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	return nil
}

func (s *Store) FindTasksWithDeadlineInWindow(ctx context.Context, windowStart, windowEnd time.Time, excludeDone bool) ([]*storage.Task, error) {
	query := `SELECT id, title, status, deadline, project_id FROM tasks
		WHERE deadline IS NOT NULL AND deadline >= ? AND deadline <= ?`
	args := []any{windowStart, windowEnd}
	if excludeDone {
		query += ` AND status != ?`
		args = append(args, string(storage.TaskStatusDone))
	}
	query += ` ORDER BY deadline, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*storage.Task
	for rows.Next() {
		var (
			task      storage.Task
			status    string
			projectID sql.NullString
		)
		if err := rows.Scan(&task.ID, &task.Title, &status, &task.Deadline, &projectID); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Status = storage.TaskStatus(status)
		if projectID.Valid {
			task.ProjectID = mo.Some(projectID.String)
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	for _, task := range tasks {
		if err := s.loadAssignees(ctx, task); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// PutTask inserts or replaces a task row with its assignees. The task
// subsystem owns tasks; this exists for seeding and tests.
func (s *Store) PutTask(ctx context.Context, task *storage.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO tasks
		(id, title, status, deadline, project_id) VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.Title, string(task.Status), task.Deadline, nullString(task.ProjectID))
	if err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("put task assignees: %w", err)
	}
	for _, userID := range task.Assignees {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_assignees (task_id, user_id) VALUES (?, ?)`,
			task.ID, userID); err != nil {
			return fmt.Errorf("put task assignees: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) IsProjectMember(ctx context.Context, userID, projectID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return n > 0, nil
}

// AddProjectMember records project-team membership.
func (s *Store) AddProjectMember(ctx context.Context, projectID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("add project member: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*storage.Event, error) {
	var (
		ev         storage.Event
		eventType  string
		endTime    sql.NullTime
		recurrence sql.NullString
		projectID  sql.NullString
	)
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &eventType, &ev.StartTime,
		&endTime, &ev.IsAllDay, &recurrence, &projectID, &ev.CreatedBy,
		&ev.Created, &ev.Modified)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	ev.Type = storage.EventType(eventType)
	if endTime.Valid {
		ev.EndTime = mo.Some(endTime.Time)
	}
	if recurrence.Valid {
		ev.Recurrence = mo.Some(recurrence.String)
	}
	if projectID.Valid {
		ev.ProjectID = mo.Some(projectID.String)
	}
	return &ev, nil
}

func (s *Store) loadAttendees(ctx context.Context, ev *storage.Event) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, status FROM event_attendees WHERE event_id = ? ORDER BY user_id`, ev.ID)
	if err != nil {
		return fmt.Errorf("load attendees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a storage.Attendee
		var status string
		if err := rows.Scan(&a.UserID, &status); err != nil {
			return fmt.Errorf("scan attendee: %w", err)
		}
		a.Status = storage.AttendeeStatus(status)
		ev.Attendees = append(ev.Attendees, a)
	}
	return rows.Err()
}

func (s *Store) loadAssignees(ctx context.Context, task *storage.Task) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id`, task.ID)
	if err != nil {
		return fmt.Errorf("load assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan assignee: %w", err)
		}
		task.Assignees = append(task.Assignees, userID)
	}
	return rows.Err()
}

func insertAttendees(ctx context.Context, tx *sql.Tx, event *storage.Event) error {
	for _, a := range event.Attendees {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_attendees (event_id, user_id, status) VALUES (?, ?, ?)`,
			event.ID, a.UserID, string(a.Status)); err != nil {
			return fmt.Errorf("insert attendee: %w", err)
		}
	}
	return nil
}

func nullTime(opt mo.Option[time.Time]) sql.NullTime {
	if t, ok := opt.Get(); ok {
		return sql.NullTime{Time: t, Valid: true}
	}
	return sql.NullTime{}
}

func nullString(opt mo.Option[string]) sql.NullString {
	if s, ok := opt.Get(); ok {
		return sql.NullString{String: s, Valid: true}
	}
	return sql.NullString{}
}
