package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatwise/reservations/internal/domain"
)

// ReservationRepository is the persistence capability set the service
// depends on. Point lookups return (nil, nil) when the row is absent.
type ReservationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	FindByIDWithToken(ctx context.Context, id, token string) (*domain.Reservation, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]domain.Reservation, error)
	FindByStatus(ctx context.Context, status domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error)
	FindByGuestEmail(ctx context.Context, email string) ([]domain.Reservation, error)
	FindFiltered(ctx context.Context, filter domain.Filter, limit, offset int) ([]domain.Reservation, int, error)
	Insert(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	Replace(ctx context.Context, id string, r *domain.Reservation) (*domain.Reservation, error)
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const queryTimeout = 3 * time.Second

const reservationCols = `id, manage_token, status,
guest_name, guest_email, guest_phone,
arrival_time, party_size, notes,
created_at, updated_at, updated_by`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(
		&r.ID, &r.ManageToken, &r.Status,
		&r.GuestName, &r.GuestEmail, &r.GuestPhone,
		&r.ArrivalTime, &r.PartySize, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt, &r.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (r *reservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *reservationRepository) FindByIDWithToken(ctx context.Context, id, token string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1 AND manage_token=$2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *reservationRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE arrival_time >= $1 AND arrival_time <= $2
ORDER BY arrival_time ASC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, start, end)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *reservationRepository) FindByStatus(ctx context.Context, status domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE status=$1 ORDER BY arrival_time ASC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *reservationRepository) FindByGuestEmail(ctx context.Context, email string) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
WHERE lower(guest_email)=lower($1) ORDER BY arrival_time DESC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *reservationRepository) FindFiltered(ctx context.Context, filter domain.Filter, limit, offset int) ([]domain.Reservation, int, error) {
	where, args := buildFilter(filter)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	countQuery := `SELECT count(*) FROM reservations` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`SELECT `+reservationCols+` FROM reservations%s ORDER BY arrival_time ASC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func buildFilter(filter domain.Filter) (string, []any) {
	var clauses []string
	var args []any

	next := func() int { return len(args) + 1 }

	if filter.StartTime != nil {
		clauses = append(clauses, fmt.Sprintf("arrival_time >= $%d", next()))
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		clauses = append(clauses, fmt.Sprintf("arrival_time <= $%d", next()))
		args = append(args, *filter.EndTime)
	}
	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", next()))
		args = append(args, *filter.Status)
	}
	if filter.GuestName != "" {
		clauses = append(clauses, fmt.Sprintf("guest_name ILIKE $%d", next()))
		args = append(args, "%"+filter.GuestName+"%")
	}
	if filter.GuestEmail != "" {
		clauses = append(clauses, fmt.Sprintf("lower(guest_email) = lower($%d)", next()))
		args = append(args, filter.GuestEmail)
	}
	if filter.PartySize != nil {
		clauses = append(clauses, fmt.Sprintf("party_size = $%d", next()))
		args = append(args, *filter.PartySize)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *reservationRepository) Insert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	const q = `INSERT INTO reservations (
		id, manage_token, status,
		guest_name, guest_email, guest_phone,
		arrival_time, party_size, notes,
		created_at, updated_at, updated_by
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return scanReservation(r.pool.QueryRow(ctx, q,
		res.ID, res.ManageToken, res.Status,
		res.GuestName, res.GuestEmail, res.GuestPhone,
		res.ArrivalTime, res.PartySize, res.Notes,
		res.CreatedAt, res.UpdatedAt, res.UpdatedBy,
	))
}

func (r *reservationRepository) Replace(ctx context.Context, id string, res *domain.Reservation) (*domain.Reservation, error) {
	const q = `UPDATE reservations SET
		status       = $2,
		guest_name   = $3,
		guest_phone  = $4,
		arrival_time = $5,
		party_size   = $6,
		notes        = $7,
		updated_at   = $8,
		updated_by   = $9
	WHERE id=$1
	RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := scanReservation(r.pool.QueryRow(ctx, q,
		id, res.Status,
		res.GuestName, res.GuestPhone,
		res.ArrivalTime, res.PartySize, res.Notes,
		res.UpdatedAt, res.UpdatedBy,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return out, err
}
