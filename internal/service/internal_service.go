package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
)

// UserTasksQuery 按用户查询任务
type UserTasksQuery struct {
	Email  string
	UserID string
	Status string
	Limit  int
	Offset int
}

// InternalService 内部接口：查询某个用户的任务
type InternalService struct {
	users repository.UserRepository
	store repository.TaskStore
}

func NewInternalService(users repository.UserRepository, store repository.TaskStore) *InternalService {
	return &InternalService{users: users, store: store}
}

// UserTasks 按 email 或 user_id 查找用户及其任务，user_id 优先
func (s *InternalService) UserTasks(ctx context.Context, q UserTasksQuery) (*repository.User, []model.Task, error) {
	q.Email = strings.TrimSpace(q.Email)
	q.UserID = strings.TrimSpace(q.UserID)

	status := model.TaskStatus(q.Status)
	if q.Status != "" && !status.Valid() {
		return nil, nil, invalid("status", "unknown status %q", q.Status)
	}

	var (
		user *repository.User
		err  error
	)
	switch {
	case q.UserID != "":
		if _, perr := uuid.Parse(q.UserID); perr != nil {
			return nil, nil, invalid("user_id", "must be a uuid")
		}
		user, err = s.users.FindByID(ctx, q.UserID)
	case q.Email != "":
		user, err = s.users.FindByEmail(ctx, q.Email)
	default:
		return nil, nil, invalid("", "email or user_id is required")
	}
	if err != nil {
		return nil, nil, err
	}

	tasks, err := s.store.List(ctx, repository.ListTasksFilter{
		OwnerID: user.ID,
		Status:  status,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		return nil, nil, err
	}
	return user, tasks, nil
}
