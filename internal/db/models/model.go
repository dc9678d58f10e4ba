package models

import (
	"time"
)

type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	DiscordID int64  `gorm:"not null;uniqueIndex"`
	Username  string `gorm:"size:80;not null;uniqueIndex"`

	Records []Record `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}

func (u User) String() string {
	return u.Username
}

// Tourn is a tournament. The short name matches the tourns table and the
// "tourn" resource type.
type Tourn struct {
	ID   uint    `gorm:"primaryKey;autoIncrement"`
	Name *string `gorm:"size:200"`

	Records []Record `gorm:"foreignKey:TournID;constraint:OnDelete:SET NULL"`
}

func (t Tourn) String() string {
	if t.Name == nil {
		return ""
	}
	return *t.Name
}

// Record is one match result. DiscordID and Username are copies of the
// player's data, not references; UserID and TournID are the optional
// relationship linkage.
type Record struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Date       time.Time `gorm:"not null"`
	DiscordID  int64     `gorm:"not null"`
	Username   string    `gorm:"size:80;not null"`
	TournyName *string   `gorm:"size:200"`
	QualyName  *string   `gorm:"size:200"`
	ScrimyName *string   `gorm:"size:200"`
	Game       *string   `gorm:"size:200"`
	Place      int       `gorm:"not null"`
	Kills      int       `gorm:"not null"`
	Assists    int       `gorm:"not null"`
	Damage     int       `gorm:"not null"`
	Score      *int

	UserID  *uint `gorm:"index"`
	TournID *uint `gorm:"index"`
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&User{}, &Tourn{}, &Record{}}
}
