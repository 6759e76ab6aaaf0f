package storage

import "time"

type dbSession struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    string
}

type dbMember struct {
	ID       string
	UserID   string
	FullName string
	Phone    string
	Email    string
	JoinedAt time.Time
	Role     string
}

type dbContribution struct {
	ID         string
	MemberID   string
	Amount     float64
	Month      int
	Year       int
	Paid       bool
	Type       string
	RecordedAt time.Time
}
