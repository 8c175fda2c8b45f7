package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type learnerFixture struct {
	svc         *LearnerService
	enrollments *fakeEnrollments
	completions *fakeCompletions
}

// Go 课程含三个已发布模块和一个草稿；Draft 课程未发布
func newLearnerFixture() *learnerFixture {
	courses := newFakeCourses(
		model.Course{UUIDBase: model.UUIDBase{ID: "go"}, Name: "Go", Active: true},
		model.Course{UUIDBase: model.UUIDBase{ID: "rust"}, Name: "Rust", Active: true},
		model.Course{UUIDBase: model.UUIDBase{ID: "draft"}, Name: "Draft", Active: false},
	)
	modules := newFakeModules(
		mkModule("g3", "go", "3", true),
		mkModule("g1", "go", "1", true),
		mkModule("g2", "go", "2", true),
		mkModule("gx", "go", "4", false),
		mkModule("d1", "draft", "1", true),
	)
	classes := newFakeClasses(
		mkClass("c1", "g1", "1", true),
		mkClass("c2", "g1", "2", true),
		mkClass("hidden", "g1", "3", false),
		mkClass("c3", "g1", "4", true),
	)
	f := &learnerFixture{
		enrollments: &fakeEnrollments{},
		completions: newFakeCompletions(nil),
	}
	f.svc = NewLearnerService(courses, modules, classes, f.enrollments, f.completions)
	return f
}

func (f *learnerFixture) complete(tier model.CompletionTier, id string) {
	f.completions.events = append(f.completions.events, completionEvent{tier: tier, userID: learner.UserID, id: id})
}

func courseIDs(courses []model.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()

	course, err := f.svc.Enroll(ctx, learner, "go")
	require.NoError(t, err)
	assert.Equal(t, "go", course.ID)

	_, err = f.svc.Enroll(ctx, learner, "go")
	require.NoError(t, err)
	assert.Len(t, f.enrollments.items, 1)
}

func TestEnrollRejectsMissingOrInactiveCourse(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, learner, "draft")
	assert.ErrorIs(t, err, util.ErrCourseInactive)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	assert.Equal(t, 404, util.ErrorStatus(err))

	_, err = f.svc.Enroll(ctx, learner, "nope")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	assert.Empty(t, f.enrollments.items)
}

func TestAvailableAndOngoingCourses(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()

	available, err := f.svc.AvailableCourses(ctx, learner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go", "rust"}, courseIDs(available))

	_, err = f.svc.Enroll(ctx, learner, "go")
	require.NoError(t, err)
	f.complete(model.TierModule, "g1")

	available, err = f.svc.AvailableCourses(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, courseIDs(available))

	ongoing, err := f.svc.OngoingCourses(ctx, learner)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, "go", ongoing[0].ID)
	// 草稿模块不计入分母
	assert.Equal(t, 33, ongoing[0].Progress)
	assert.False(t, ongoing[0].Completed)

	// 其他人的进度互不影响
	other, err := f.svc.OngoingCourses(ctx, Identity{UserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestOngoingCourseCompleted(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()
	f.svc.Enroll(ctx, learner, "go")
	f.complete(model.TierModule, "g1")
	f.complete(model.TierModule, "g2")
	f.complete(model.TierModule, "g3")
	f.complete(model.TierCourse, "go")

	ongoing, err := f.svc.OngoingCourses(ctx, learner)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, 100, ongoing[0].Progress)
	assert.True(t, ongoing[0].Completed)
}

func TestCourseOutlineUnlocksSequentially(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()
	f.complete(model.TierModule, "g1")

	outline, err := f.svc.CourseOutline(ctx, learner, "go")
	require.NoError(t, err)
	require.Len(t, outline.Modules, 3)

	assert.Equal(t, "g1", outline.Modules[0].ID)
	assert.True(t, outline.Modules[0].Available)
	assert.True(t, outline.Modules[0].Completed)

	assert.Equal(t, "g2", outline.Modules[1].ID)
	assert.True(t, outline.Modules[1].Available)
	assert.False(t, outline.Modules[1].Completed)

	assert.Equal(t, "g3", outline.Modules[2].ID)
	assert.False(t, outline.Modules[2].Available)
	assert.True(t, outline.Modules[2].IsLast)
	assert.False(t, outline.Completed)

	_, err = f.svc.CourseOutline(ctx, learner, "draft")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestModuleOutlineSkipsInactiveClasses(t *testing.T) {
	f := newLearnerFixture()
	ctx := context.Background()
	f.complete(model.TierClass, "c2")

	outline, err := f.svc.ModuleOutline(ctx, learner, "g1")
	require.NoError(t, err)
	require.Len(t, outline.Classes, 3)

	ids := []string{outline.Classes[0].ID, outline.Classes[1].ID, outline.Classes[2].ID}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
	// c3 只看前一个兄弟
	assert.Equal(t, []bool{true, false, true}, []bool{
		outline.Classes[0].Available,
		outline.Classes[1].Available,
		outline.Classes[2].Available,
	})
	assert.True(t, outline.Classes[2].IsLast)

	_, err = f.svc.ModuleOutline(ctx, learner, "gx")
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	// 模块所属课程未发布
	_, err = f.svc.ModuleOutline(ctx, learner, "d1")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}
