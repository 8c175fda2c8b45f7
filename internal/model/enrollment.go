package model

import "time"

type Enrollment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_enrollment_user_course" json:"userId"`
	CourseID   string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_enrollment_user_course;index" json:"courseId"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollment_courses"
}
