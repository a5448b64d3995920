package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/blog-api/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUserNotFound is returned when no matching row exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when an insert hits the email or username unique constraint.
	ErrDuplicateUser = errors.New("email or username already exists")
)

// UserStore defines the credential store used by the authentication service.
type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user NewUser) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetActiveByID(ctx context.Context, id int64) (*models.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*models.User, error)
	SoftDelete(ctx context.Context, id int64) error
}

// UserCounts holds account totals split by soft-delete state.
type UserCounts struct {
	Active  int64
	Deleted int64
}

// NewUser holds the values persisted at registration.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	DisplayName  *string
	CreatedAt    time.Time
}

// ProfileUpdate lists profile columns to change. Nil fields are left alone;
// a pointer to an empty string clears the column.
type ProfileUpdate struct {
	DisplayName       *string
	Bio               *string
	ProfilePictureURL *string
}

const userColumns = `id, username, email, password_hash, display_name, bio,
	profile_picture_url, created_at, updated_at, deleted_at`

// SQLUserStore implements UserStore on a database/sql pool.
type SQLUserStore struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
}

// NewSQLUserStore creates a store. Every call is bounded by timeout,
// which includes waiting for a pooled connection.
func NewSQLUserStore(db *sql.DB, timeout time.Duration) *SQLUserStore {
	return &SQLUserStore{db: db, timeout: timeout, now: time.Now}
}

func (s *SQLUserStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// EmailExists reports whether any row, soft-deleted or not, uses email.
func (s *SQLUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM users WHERE email = ? LIMIT 1", email)
}

// UsernameExists reports whether any row, soft-deleted or not, uses username.
func (s *SQLUserStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM users WHERE username = ? LIMIT 1", username)
}

func (s *SQLUserStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var one int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return true, nil
}

// Create inserts a user and returns its generated ID. A uniqueness
// violation on either column is reported as ErrDuplicateUser.
func (s *SQLUserStore) Create(ctx context.Context, user NewUser) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	createdAt = createdAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.DisplayName, createdAt, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted user id: %w", err)
	}
	return id, nil
}

// GetByID retrieves a user by ID, including soft-deleted rows.
func (s *SQLUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetActiveByID retrieves a user by ID unless it has been soft-deleted.
func (s *SQLUserStore) GetActiveByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL", id)
}

// GetActiveByEmail retrieves a user by email, including the password hash,
// unless it has been soft-deleted.
func (s *SQLUserStore) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? AND deleted_at IS NULL", email)
}

func (s *SQLUserStore) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the given profile columns of an active user and
// returns the updated row.
func (s *SQLUserStore) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*models.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.now().UTC()}

	for _, col := range []struct {
		name  string
		value *string
	}{
		{"display_name", update.DisplayName},
		{"bio", update.Bio},
		{"profile_picture_url", update.ProfilePictureURL},
	} {
		if col.value == nil {
			continue
		}
		sets = append(sets, col.name+" = ?")
		if *col.value == "" {
			args = append(args, nil)
		} else {
			args = append(args, *col.value)
		}
	}
	args = append(args, id)

	execCtx, cancel := s.withTimeout(ctx)
	res, err := s.db.ExecContext(execCtx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ? AND deleted_at IS NULL",
		args...,
	)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return s.GetActiveByID(ctx, id)
}

// SoftDelete marks an active user as deleted.
func (s *SQLUserStore) SoftDelete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete user: %w", err)
	}
	return expectOneRow(res)
}

// CountUsers returns how many rows are active and how many are soft-deleted.
func (s *SQLUserStore) CountUsers(ctx context.Context) (UserCounts, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var counts UserCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE deleted_at IS NULL),
		        COUNT(*) FILTER (WHERE deleted_at IS NOT NULL)
		 FROM users`,
	).Scan(&counts.Active, &counts.Deleted)
	if err != nil {
		return UserCounts{}, fmt.Errorf("failed to count users: %w", err)
	}
	return counts, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user    models.User
		deleted sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.Bio, &user.ProfilePictureURL,
		&user.CreatedAt, &user.UpdatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}
	if deleted.Valid {
		t := deleted.Time
		user.DeletedAt = &t
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// compile-time interface check
var _ UserStore = (*SQLUserStore)(nil)
