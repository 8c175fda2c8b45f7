package service

import (
	"bytes"
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func (u *fakeUploader) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
		u.types = map[string]string{}
	}
	u.objects[filename] = data
	u.types[filename] = contentType
	return "/uploads/" + filename, nil
}

func (u *fakeUploader) Delete(ctx context.Context, filename string) error {
	delete(u.objects, filename)
	u.deleted = append(u.deleted, filename)
	return nil
}

type courseFixture struct {
	svc      *CourseService
	courses  *fakeCourses
	modules  *fakeSiblings[model.Module]
	classes  *fakeSiblings[model.Class]
	steps    *fakeSiblings[model.Step]
	uploader *fakeUploader
}

func newCourseFixture() *courseFixture {
	f := &courseFixture{
		courses: newFakeCourses(model.Course{UUIDBase: model.UUIDBase{ID: "C"}, Name: "Go", Active: true}),
		modules: newFakeModules(
			mkModule("m1", "C", "1", true),
			mkModule("m2", "C", "2", true),
			mkModule("m3", "C", "3", true),
		),
		classes:  newFakeClasses(mkClass("k1", "m1", "1", true)),
		steps:    newFakeSteps(),
		uploader: &fakeUploader{},
	}
	f.svc = NewCourseService(f.courses, f.modules, f.classes, f.steps, f.uploader)
	return f
}

func raw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestCreateCourseActiveByDefault(t *testing.T) {
	f := newCourseFixture()
	course, err := f.svc.CreateCourse(context.Background(), CourseRequest{Name: "  Rust  "})
	require.NoError(t, err)
	assert.Equal(t, "Rust", course.Name)
	assert.True(t, course.Active)
	assert.NotEmpty(t, course.ID)
}

func TestSetCourseActiveAndNotFound(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	course, err := f.svc.SetCourseActive(ctx, "C", false)
	require.NoError(t, err)
	assert.False(t, course.Active)

	_, err = f.svc.SetCourseActive(ctx, "missing", true)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = f.svc.ListModules(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestCreateModuleAppendsAfterHighestOrder(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	f.modules.Create(ctx, &model.Module{
		UUIDBase: model.UUIDBase{ID: "odd"},
		Ordering: model.Ordering{IsActive: true, Order: "not-a-number"},
		CourseID: "C",
	})

	module, err := f.svc.CreateModule(ctx, "C", SiblingRequest{Name: "Extra"})
	require.NoError(t, err)
	assert.Equal(t, "4", module.Order)
	assert.True(t, module.IsActive)

	inactive := false
	module, err = f.svc.CreateModule(ctx, "C", SiblingRequest{Name: "Draft", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "5", module.Order)
	assert.False(t, module.IsActive)
}

func TestCreateClassFirstGetsOrderOne(t *testing.T) {
	f := newCourseFixture()
	class, err := f.svc.CreateClass(context.Background(), "m2", SiblingRequest{Name: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, "1", class.Order)
	assert.Equal(t, "m2", class.ModuleID)

	_, err = f.svc.CreateClass(context.Background(), "nope", SiblingRequest{Name: "x"})
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestUpdateModulePatchesFields(t *testing.T) {
	f := newCourseFixture()
	name := "Renamed"
	off := false

	module, err := f.svc.UpdateModule(context.Background(), "m2", SiblingUpdateRequest{Name: &name, IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", module.Name)
	assert.False(t, module.IsActive)
	assert.Equal(t, "2", module.Order)

	_, err = f.svc.UpdateModule(context.Background(), "ghost", SiblingUpdateRequest{})
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestReorderModules(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	updated, err := f.svc.ReorderModules(ctx, "C", []string{"m3", "m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m1", "m2"}, moduleIDs(updated))
	assert.Equal(t, []string{"1", "2", "3"}, moduleOrders(updated))

	stored, err := f.svc.ListModules(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m1", "m2"}, moduleIDs(stored))
}

func TestReorderModulesInvalidSequence(t *testing.T) {
	f := newCourseFixture()

	current, err := f.svc.ReorderModules(context.Background(), "C", []string{"m1", "m2"})
	assert.ErrorIs(t, err, util.ErrInvalidSequence)
	assert.Equal(t, []string{"m1", "m2", "m3"}, moduleIDs(current))
	assert.Equal(t, 0, f.modules.batches)
}

func TestReorderModulesPersistFailureReturnsPrevious(t *testing.T) {
	f := newCourseFixture()
	f.modules.batchErr = errors.New("deadlock")

	current, err := f.svc.ReorderModules(context.Background(), "C", []string{"m3", "m2", "m1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reorder modules")
	assert.Equal(t, []string{"m1", "m2", "m3"}, moduleIDs(current))
	assert.Equal(t, []string{"1", "2", "3"}, moduleOrders(current))
	assert.Equal(t, 500, util.ErrorStatus(err))
}

func TestCreateStepValidation(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     StepRequest
		wantErr bool
	}{
		{"text", StepRequest{Name: "read", Type: model.StepText, Payload: raw(map[string]string{"content": "hello"})}, false},
		{"text without content", StepRequest{Name: "read", Type: model.StepText, Payload: raw(map[string]string{})}, true},
		{"unknown type", StepRequest{Name: "x", Type: "Video", Payload: raw(map[string]string{})}, true},
		{"multiple choice", StepRequest{Name: "q", Type: model.StepMultipleChoice, Payload: raw(map[string]interface{}{
			"statement":       "2+2?",
			"options":         []map[string]interface{}{{"id": 0, "answer": "3"}, {"id": 1, "answer": "4"}},
			"correctOptionId": 1,
		})}, false},
		{"correct option missing", StepRequest{Name: "q", Type: model.StepMultipleChoice, Payload: raw(map[string]interface{}{
			"statement":       "2+2?",
			"options":         []map[string]interface{}{{"id": 0, "answer": "3"}, {"id": 1, "answer": "4"}},
			"correctOptionId": 7,
		})}, true},
		{"single option", StepRequest{Name: "q", Type: model.StepMultipleChoice, Payload: raw(map[string]interface{}{
			"statement":       "2+2?",
			"options":         []map[string]interface{}{{"id": 0, "answer": "4"}},
			"correctOptionId": 0,
		})}, true},
		{"drag and drop", StepRequest{Name: "d", Type: model.StepDragAndDrop, Payload: raw(map[string]interface{}{
			"statement":      "pick nouns",
			"words":          []map[string]interface{}{{"id": 0, "word": "cat"}, {"id": 1, "word": "run"}},
			"correctWordIds": []int{0},
		})}, false},
		{"drag word missing", StepRequest{Name: "d", Type: model.StepDragAndDrop, Payload: raw(map[string]interface{}{
			"statement":      "pick nouns",
			"words":          []map[string]interface{}{{"id": 0, "word": "cat"}},
			"correctWordIds": []int{0, 3},
		})}, true},
		{"malformed json", StepRequest{Name: "d", Type: model.StepDragAndDrop, Payload: json.RawMessage(`{"words": "oops"}`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := f.svc.CreateStep(ctx, "k1", tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, util.ErrInvalidStepPayload)
				assert.Equal(t, 400, util.ErrorStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "k1", step.ClassID)
		})
	}

	steps, err := f.svc.ListSteps(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{steps[0].Order, steps[1].Order, steps[2].Order})
}

func TestUpdateStepRevalidatesPayload(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	step, err := f.svc.CreateStep(ctx, "k1", StepRequest{Name: "read", Type: model.StepText, Payload: raw(map[string]string{"content": "a"})})
	require.NoError(t, err)

	_, err = f.svc.UpdateStep(ctx, step.ID, StepUpdateRequest{Payload: raw(map[string]string{"content": ""})})
	assert.ErrorIs(t, err, util.ErrInvalidStepPayload)

	updated, err := f.svc.UpdateStep(ctx, step.ID, StepUpdateRequest{Payload: raw(map[string]string{"content": "b"})})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"b"}`, string(updated.Payload))

	_, err = f.svc.UpdateStep(ctx, "ghost", StepUpdateRequest{})
	assert.ErrorIs(t, err, util.ErrStepNotFound)
}

// 最小的 PNG 文件头
var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadCourseCover(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	course, err := f.svc.UploadCourseCover(ctx, "C", "Cover.PNG", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(course.CoverURL, "/uploads/covers/C/"))
	assert.True(t, strings.HasSuffix(course.CoverURL, ".png"))

	require.Len(t, f.uploader.objects, 1)
	for name, data := range f.uploader.objects {
		assert.Equal(t, pngHeader, data)
		assert.Equal(t, "image/png", f.uploader.types[name])
	}
}

func TestUploadCourseCoverRejectsBadFiles(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	_, err := f.svc.UploadCourseCover(ctx, "C", "notes.txt", strings.NewReader("plain text"), 10)
	assert.ErrorIs(t, err, util.ErrInvalidFile)

	_, err = f.svc.UploadCourseCover(ctx, "C", "big.png", bytes.NewReader(pngHeader), util.MaxCoverSize+1)
	assert.ErrorIs(t, err, util.ErrInvalidFile)

	_, err = f.svc.UploadCourseCover(ctx, "missing", "a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	assert.Empty(t, f.uploader.objects)
}
