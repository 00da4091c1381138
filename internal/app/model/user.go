package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	WhatsApp     string         `gorm:"column:whatsapp;uniqueIndex;not null" json:"whatsapp"` // login key, digits only e.g. 6281234567890
	PasswordHash string         `gorm:"not null" json:"-"`
	FullName     string         `gorm:"not null" json:"full_name"`
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Addresses []Address `gorm:"foreignKey:UserID" json:"addresses,omitempty"`
}

func (User) TableName() string {
	return "users"
}
