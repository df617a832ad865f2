// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 定义了 users 表的 ORM 模型。
type User struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName      string    `gorm:"type:varchar(255)" json:"fullName"`
	Role          string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
	LearningGoals string    `gorm:"type:text" json:"learningGoals"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}
