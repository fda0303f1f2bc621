package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/crypto/bcrypt"

	"clomery/internal/models"
	"clomery/internal/query"
)

const usersTable = "users"

var userColumns = []string{"id", "name", "email", "password_hash", "avatar", "group_id", "create_time"}

// UserStore handles all user-related database operations.
type UserStore struct {
	db      DBTX
	dialect query.Dialect
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db DBTX, d query.Dialect) *UserStore {
	return &UserStore{db: db, dialect: d}
}

// WithTx returns a copy of the store that runs its statements on tx.
func (s *UserStore) WithTx(tx DBTX) *UserStore {
	return &UserStore{db: tx, dialect: s.dialect}
}

func userCol(name string) string { return query.Col(usersTable, name) }

func scanUser(scanner rowScanner) (*models.User, error) {
	u := &models.User{}
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.GroupID, &u.CreateTime)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) findOne(ctx context.Context, pred sq.Sqlizer) (*models.User, error) {
	sel := s.dialect.Builder().
		Select(query.Cols(usersTable, userColumns...)...).
		From(usersTable).
		Where(pred).
		Limit(1)
	u, err := scanUser(queryRow(ctx, s.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// FindByID retrieves a user by id. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.findOne(ctx, sq.Eq{userCol("id"): id})
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByName retrieves a user by their exact name. Returns nil if not found.
func (s *UserStore) FindByName(ctx context.Context, name string) (*models.User, error) {
	u, err := s.findOne(ctx, sq.Eq{userCol("name"): name})
	if err != nil {
		return nil, fmt.Errorf("find user by name: %w", err)
	}
	return u, nil
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *UserStore) Create(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ins := s.dialect.Builder().
		Insert(usersTable).
		Columns("name", "email", "password_hash", "create_time").
		Values(name, email, string(hash), time.Now().Unix()).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
	u, err := scanUser(queryRow(ctx, s.db, ins))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// CheckName reports whether name is taken, ignoring case.
func (s *UserStore) CheckName(ctx context.Context, name string) (bool, error) {
	n, err := s.countWhere(ctx, sq.Expr("LOWER("+userCol("name")+") = LOWER(?)", name))
	if err != nil {
		return false, fmt.Errorf("check user name: %w", err)
	}
	return n > 0, nil
}

// CheckEmail reports whether email is taken, ignoring case.
func (s *UserStore) CheckEmail(ctx context.Context, email string) (bool, error) {
	n, err := s.countWhere(ctx, sq.Expr("LOWER("+userCol("email")+") = LOWER(?)", email))
	if err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return n > 0, nil
}

// Count returns the total number of users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	n, err := s.countWhere(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) countWhere(ctx context.Context, pred sq.Sqlizer) (int, error) {
	sel := s.dialect.Builder().Select("COUNT(*)").From(usersTable)
	if pred != nil {
		sel = sel.Where(pred)
	}
	var n int
	err := queryRow(ctx, s.db, sel).Scan(&n)
	return n, err
}

// SetAvatar points the user's avatar at a stored resource id.
func (s *UserStore) SetAvatar(ctx context.Context, id, resourceID int64) (bool, error) {
	return s.set(ctx, id, "avatar", resourceID)
}

// SetGroup moves the user into a group.
func (s *UserStore) SetGroup(ctx context.Context, id, groupID int64) (bool, error) {
	return s.set(ctx, id, "group_id", groupID)
}

func (s *UserStore) set(ctx context.Context, id int64, column string, value int64) (bool, error) {
	upd := s.dialect.Builder().
		Update(usersTable).
		Set(column, value).
		Where(sq.Eq{userCol("id"): id})
	res, err := exec(ctx, s.db, upd)
	if err != nil {
		return false, fmt.Errorf("set user %s: %w", column, err)
	}
	return rowsAffected(res)
}

// CheckPassword compares a plaintext password against the user's bcrypt hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}
