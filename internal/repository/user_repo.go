package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// UserRepository 用户查询（内部接口使用）
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByEmail 按邮箱查询，大小写不敏感
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error
	return toUser(&m, err)
}

// FindByID 按 id 查询
func (r *UserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return toUser(&m, err)
}

func toUser(m *UserModel, err error) (*User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := m.ToUser()
	return &u, nil
}
