package model

import "time"

// UserPoints 用户累计积分，只通过原子自增修改
type UserPoints struct {
	UserID      string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	Username    string    `gorm:"size:100" json:"username"`
	Points      int       `gorm:"not null;index" json:"points"`
	LastUpdated time.Time `gorm:"not null" json:"lastUpdated"`
}

func (UserPoints) TableName() string {
	return "user_points"
}
