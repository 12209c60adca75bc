package store

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"appointment-management-api/internal/model"
)

const appointmentColumns = "id, title, description, date, time, status, audio_message, user_ids, created_by, created_at, updated_at"

// AppointmentFilter narrows a listing to one viewer's slice of the table.
// The participant predicate is always applied; search and status are
// optional. Zero Limit means no windowing.
type AppointmentFilter struct {
	ViewerID   string
	Search     string
	Status     model.Status
	Limit      int
	Offset     int
	Descending bool
}

func (f AppointmentFilter) conditions() squirrel.And {
	cond := squirrel.And{
		squirrel.Expr("user_ids @> ARRAY[?]::text[]", f.ViewerID),
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		cond = append(cond, squirrel.Or{
			squirrel.ILike{"title": like},
			squirrel.Expr("date::text ILIKE ?", like),
			squirrel.Expr("time ILIKE ?", like),
		})
	}
	if f.Status != "" {
		cond = append(cond, squirrel.Eq{"status": string(f.Status)})
	}
	return cond
}

// SearchAppointments returns one window of the viewer's appointments plus
// the exact count of all rows matching the same predicate, so the caller
// can do pagination arithmetic.
func (s *Store) SearchAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, int, error) {
	cond := f.conditions()

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("appointments").Where(cond).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "date ASC, time ASC"
	if f.Descending {
		order = "date DESC, time DESC"
	}
	q := psql.Select(appointmentColumns).From("appointments").Where(cond).OrderBy(order)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	sql, args, err := psql.Select(appointmentColumns).From("appointments").
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAppointment(s.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Store) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	sql, args, err := psql.Insert("appointments").
		Columns("id", "title", "description", "date", "time", "status", "audio_message", "user_ids", "created_by").
		Values(a.ID, a.Title, a.Description, a.Date, a.Time, string(a.Status), a.AudioMessage, a.UserIDs, a.CreatedBy).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx, sql, args...).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// UpdateAppointmentStatus writes the transition. The status precondition is
// repeated in the WHERE clause so a concurrent transition cannot slip past
// the handler's authorization check; false means the row was not in a state
// that still allows the action.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, next model.Status) (bool, error) {
	q := psql.Update("appointments").
		Set("status", string(next)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	switch next {
	case model.StatusAccept, model.StatusDecline:
		q = q.Where(squirrel.Eq{"status": string(model.StatusPending)})
	case model.StatusCancel:
		q = q.Where(squirrel.NotEq{"status": string(model.StatusCancel)})
	default:
		return false, model.ErrNotAllowed
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// scanAppointment works for both pgx.Row and pgx.Rows.
func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Date, &a.Time, &a.Status,
		&a.AudioMessage, &a.UserIDs, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
