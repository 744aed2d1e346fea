package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, COALESCE(name, ''), role FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "user.get", "Der Benutzer wurde nicht gefunden.", fmt.Errorf("user %d", id))
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
