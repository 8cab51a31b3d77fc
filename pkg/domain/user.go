package domain

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	Major        string
	GradYear     int
	PasswordHash string
	CreatedAt    time.Time
}
