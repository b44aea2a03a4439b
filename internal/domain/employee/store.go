package employee

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hrsync/internal/platform/querier"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
           id::text,
           COALESCE(external_id, ''),
           user_id,
           first_name, last_name,
           birth_date,
           type,
           login_method,
           COALESCE(department_id::text, ''),
           COALESCE(planning_id, ''),
           created_at, updated_at`

func (s *Store) GetByID(ctx context.Context, id string) (Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Employee{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, id)
	emp, err := scanEmployee(row)
	if err != nil {
		return Employee{}, translatePgError(err)
	}
	return emp, nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translatePgError(err)
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// ListProfiles resolves display fields for a batch of user ids in a single
// query. Ids without an employee are absent from the result.
func (s *Store) ListProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT e.user_id, e.first_name, e.last_name, e.login_method, COALESCE(d.name, '')
    FROM employees e
    LEFT JOIN departments d ON d.id = e.department_id
    WHERE e.user_id = ANY($1)
  `, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var profile Profile
		var first, last, method string
		if err := rows.Scan(&profile.UserID, &first, &last, &method, &profile.DepartmentName); err != nil {
			return nil, err
		}
		profile.Name = joinName(first, last)
		profile.LoginMethod = LoginMethod(method)
		out[profile.UserID] = profile
	}
	return out, rows.Err()
}

// UpsertSynced creates or renames the employee mirrored from a vendor user.
// It reports whether a new row was inserted.
func (s *Store) UpsertSynced(ctx context.Context, user SyncedUser) (bool, error) {
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = DefaultName
	}
	userID := strings.TrimSpace(user.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}

	var inserted bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (id, external_id, user_id, first_name, last_name, birth_date, type, login_method)
    VALUES ($1, $2, $3, $4, $5, CURRENT_DATE, $6, $7)
    ON CONFLICT (external_id) DO UPDATE
      SET last_name = EXCLUDED.last_name,
          updated_at = now()
    RETURNING (xmax = 0)
  `, uuid.NewString(), user.ExternalID, userID, DefaultName, name, DefaultType, string(LoginPassOrFingerOrCard)).Scan(&inserted)
	if err != nil {
		return false, translatePgError(err)
	}
	return inserted, nil
}

func (s *Store) Create(ctx context.Context, emp Employee) (Employee, error) {
	emp = withDefaults(emp, time.Now().UTC())
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (id, external_id, user_id, first_name, last_name, birth_date, type, login_method, department_id, planning_id)
    VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, NULLIF($10, ''))
    RETURNING`+employeeColumns,
		emp.ID, emp.ExternalID, emp.UserID, emp.FirstName, emp.LastName, emp.BirthDate,
		emp.Type, string(emp.LoginMethod), emp.DepartmentID, emp.PlanningID,
	)
	created, err := scanEmployee(row)
	if err != nil {
		return Employee{}, translatePgError(err)
	}
	return created, nil
}

// Delete removes the employee and returns the deleted row so callers can
// propagate the removal to the device.
func (s *Store) Delete(ctx context.Context, id string) (Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Employee{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `
    DELETE FROM employees
    WHERE id = $1
    RETURNING`+employeeColumns, id)
	deleted, err := scanEmployee(row)
	if err != nil {
		return Employee{}, translatePgError(err)
	}
	return deleted, nil
}

func withDefaults(emp Employee, now time.Time) Employee {
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if strings.TrimSpace(emp.UserID) == "" {
		emp.UserID = uuid.NewString()
	}
	if strings.TrimSpace(emp.FirstName) == "" {
		emp.FirstName = DefaultName
	}
	if strings.TrimSpace(emp.LastName) == "" {
		emp.LastName = DefaultName
	}
	if emp.BirthDate.IsZero() {
		emp.BirthDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if strings.TrimSpace(emp.Type) == "" {
		emp.Type = DefaultType
	}
	if emp.LoginMethod == "" {
		emp.LoginMethod = LoginPassOrFingerOrCard
	}
	return emp
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var method string
	if err := row.Scan(
		&emp.ID, &emp.ExternalID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.BirthDate,
		&emp.Type, &method, &emp.DepartmentID, &emp.PlanningID, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return Employee{}, err
	}
	emp.LoginMethod = LoginMethod(method)
	return emp, nil
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return ErrAlreadyExists
		case foreignKeyViolationCode:
			return ErrDepartmentNotFound
		}
	}
	return err
}
