package model

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type StepType string

const (
	StepText           StepType = "Text"
	StepMultipleChoice StepType = "MultipleChoice"
	StepDragAndDrop    StepType = "DragAndDrop"
)

func (t StepType) Valid() bool {
	switch t {
	case StepText, StepMultipleChoice, StepDragAndDrop:
		return true
	}
	return false
}

// Step 课时中的一个步骤，题目内容按类型以 JSON 存储在 Payload 中
type Step struct {
	UUIDBase
	Name string   `gorm:"size:255;not null" json:"name"`
	Type StepType `gorm:"column:step_type;size:32;not null" json:"stepType"`
	Ordering
	ClassID string         `gorm:"type:varchar(36);index;not null" json:"classId"`
	Payload datatypes.JSON `json:"payload"`
}

func (Step) TableName() string {
	return "course_steps"
}

func (s Step) WithOrder(order string) Step {
	s.Order = order
	return s
}

type TextContent struct {
	Content string `json:"content" validate:"required"`
}

type ChoiceOption struct {
	ID     int    `json:"id" validate:"gte=0"`
	Answer string `json:"answer" validate:"required"`
}

type MultipleChoiceQuestion struct {
	Statement       string         `json:"statement" validate:"required"`
	Options         []ChoiceOption `json:"options" validate:"min=2,dive"`
	CorrectOptionID int            `json:"correctOptionId" validate:"gte=0"`
}

type DragWord struct {
	ID   int    `json:"id" validate:"gte=0"`
	Word string `json:"word" validate:"required"`
}

type DragAndDropQuestion struct {
	Statement      string     `json:"statement" validate:"required"`
	Words          []DragWord `json:"words" validate:"min=1,dive"`
	CorrectWordIDs []int      `json:"correctWordIds" validate:"min=1"`
}

// DecodePayload 按步骤类型解析 Payload，返回 *TextContent / *MultipleChoiceQuestion / *DragAndDropQuestion
func (s Step) DecodePayload() (interface{}, error) {
	var target interface{}
	switch s.Type {
	case StepText:
		target = &TextContent{}
	case StepMultipleChoice:
		target = &MultipleChoiceQuestion{}
	case StepDragAndDrop:
		target = &DragAndDropQuestion{}
	default:
		return nil, fmt.Errorf("unknown step type %q", s.Type)
	}

	if len(s.Payload) == 0 {
		return target, nil
	}
	if err := json.Unmarshal(s.Payload, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", s.Type, err)
	}
	return target, nil
}
