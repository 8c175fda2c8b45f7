package model

// Course 课程，不做物理删除，下架时置 Active=false
type Course struct {
	UUIDBase
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Active      bool   `gorm:"not null;index" json:"active"`
	CoverURL    string `gorm:"size:512" json:"coverUrl,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type Module struct {
	UUIDBase
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Ordering
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`
}

func (Module) TableName() string {
	return "course_modules"
}

func (m Module) WithOrder(order string) Module {
	m.Order = order
	return m
}

// Class 课时，隶属于模块
type Class struct {
	UUIDBase
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Ordering
	ModuleID string `gorm:"type:varchar(36);index;not null" json:"moduleId"`
}

func (Class) TableName() string {
	return "course_classes"
}

func (c Class) WithOrder(order string) Class {
	c.Order = order
	return c
}
