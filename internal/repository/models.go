package repository

import "time"

// UserModel GORM 模型 - 对应 users 表
type UserModel struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Email     string    `gorm:"column:email;type:text;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName 指定表名
func (UserModel) TableName() string { return "users" }

// User 任务所有者
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUser 转换为 User 实体
func (m *UserModel) ToUser() User {
	return User{ID: m.ID, Email: m.Email, Name: m.Name, CreatedAt: m.CreatedAt}
}
