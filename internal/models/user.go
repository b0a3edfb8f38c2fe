// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const DefaultReputationScore = 100

type User struct {
	ID              string    `json:"user_id" gorm:"primaryKey;size:50"`
	Email           string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string    `json:"-" gorm:"size:255;not null"`
	Name            string    `json:"name" gorm:"size:100"`
	Phone           string    `json:"phone" gorm:"size:50"`
	Location        string    `json:"location" gorm:"size:100"`
	ReputationScore int       `json:"reputation_score" gorm:"default:100"`
	ListingsCount   int       `json:"listings_count" gorm:"default:0"`
	SalesCount      int       `json:"sales_count" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
