package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"fmt"
)

// PlayerService 课时播放：按顺序下发步骤并校验答案，只对已解锁的课时开放
type PlayerService struct {
	Steps SiblingStore[model.Step]

	access *classAccess
}

func NewPlayerService(
	courses CourseStore,
	modules SiblingStore[model.Module],
	classes SiblingStore[model.Class],
	steps SiblingStore[model.Step],
	completions CompletionStore,
) *PlayerService {
	return &PlayerService{
		Steps: steps,
		access: &classAccess{
			Courses:     courses,
			Modules:     modules,
			Classes:     classes,
			Completions: completions,
		},
	}
}

// PlayerStep 下发给学员的步骤，不含正确答案
type PlayerStep struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     model.StepType  `json:"stepType"`
	Order    string          `json:"order"`
	Content  string          `json:"content,omitempty"`
	Question *PlayerQuestion `json:"question,omitempty"`
}

type PlayerQuestion struct {
	Statement string         `json:"statement"`
	Options   []PlayerOption `json:"options"`
}

type PlayerOption struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type VerifyResult struct {
	Correct        bool  `json:"correct"`
	CorrectAnswers []int `json:"correctAnswers"`
}

func (s *PlayerService) ClassSteps(ctx context.Context, who Identity, classID string) ([]PlayerStep, error) {
	if _, err := s.access.resolve(ctx, who, classID); err != nil {
		return nil, err
	}

	steps, err := s.Steps.ListByParent(ctx, classID)
	if err != nil {
		return nil, err
	}

	active := ActiveInOrder(steps)
	out := make([]PlayerStep, 0, len(active))
	for _, step := range active {
		ps, err := learnerView(step)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.ID, err)
		}
		out = append(out, ps)
	}
	return out, nil
}

func learnerView(step model.Step) (PlayerStep, error) {
	ps := PlayerStep{ID: step.ID, Name: step.Name, Type: step.Type, Order: step.Order}

	payload, err := step.DecodePayload()
	if err != nil {
		return ps, err
	}
	switch q := payload.(type) {
	case *model.TextContent:
		ps.Content = q.Content
	case *model.MultipleChoiceQuestion:
		pq := &PlayerQuestion{Statement: q.Statement}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, PlayerOption{ID: o.ID, Label: o.Answer})
		}
		ps.Question = pq
	case *model.DragAndDropQuestion:
		pq := &PlayerQuestion{Statement: q.Statement}
		for _, w := range q.Words {
			pq.Options = append(pq.Options, PlayerOption{ID: w.ID, Label: w.Word})
		}
		ps.Question = pq
	}
	return ps, nil
}

// VerifyAnswer 文本步骤总是通过；选择题比对正确选项；拖拽题要求所选词在正确集合中
func (s *PlayerService) VerifyAnswer(ctx context.Context, who Identity, stepID string, selected int) (*VerifyResult, error) {
	step, err := s.Steps.FindByID(ctx, stepID)
	if err != nil {
		return nil, notFound(err, util.ErrStepNotFound)
	}
	if !step.IsActive {
		return nil, util.ErrStepNotFound
	}
	if _, err := s.access.resolve(ctx, who, step.ClassID); err != nil {
		return nil, err
	}

	payload, err := step.DecodePayload()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidStepPayload, err)
	}

	switch q := payload.(type) {
	case *model.TextContent:
		return &VerifyResult{Correct: true, CorrectAnswers: []int{}}, nil
	case *model.MultipleChoiceQuestion:
		if selected < 0 {
			return nil, util.ErrInvalidAnswer
		}
		return &VerifyResult{
			Correct:        selected == q.CorrectOptionID,
			CorrectAnswers: []int{q.CorrectOptionID},
		}, nil
	case *model.DragAndDropQuestion:
		if selected < 0 {
			return nil, util.ErrInvalidAnswer
		}
		correct := false
		for _, id := range q.CorrectWordIDs {
			if id == selected {
				correct = true
				break
			}
		}
		return &VerifyResult{Correct: correct, CorrectAnswers: q.CorrectWordIDs}, nil
	}
	return nil, util.ErrInvalidStepPayload
}
