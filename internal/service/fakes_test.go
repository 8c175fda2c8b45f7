package service

import (
	"context"
	"course_player_backend/internal/model"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ---- 同级实体 ----

type fakeSiblings[T model.Sibling[T]] struct {
	mu       sync.Mutex
	items    []*T
	seq      int
	parentOf func(T) string
	setID    func(*T, string)
	apply    func(*T, map[string]interface{})

	listErr  error
	batchErr error
	batches  int
}

func (f *fakeSiblings[T]) Create(ctx context.Context, item *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if (*item).SiblingID() == "" {
		f.seq++
		f.setID(item, fmt.Sprintf("gen-%d", f.seq))
	}
	cp := *item
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeSiblings[T]) FindByID(ctx context.Context, id string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if (*item).SiblingID() == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSiblings[T]) ListByParent(ctx context.Context, parentID string) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []T
	for _, item := range f.items {
		if f.parentOf(*item) == parentID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeSiblings[T]) Update(ctx context.Context, id string, patch map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if (*item).SiblingID() == id {
			f.apply(item, patch)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSiblings[T]) BatchUpdateOrder(ctx context.Context, updates []model.OrderUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, u := range updates {
		for _, item := range f.items {
			if (*item).SiblingID() == u.ID {
				*item = (*item).WithOrder(u.Order)
			}
		}
	}
	return nil
}

func applyOrdering(o *model.Ordering, patch map[string]interface{}) {
	if v, ok := patch["is_active"].(bool); ok {
		o.IsActive = v
	}
	if v, ok := patch["sort_order"].(string); ok {
		o.Order = v
	}
}

func newFakeModules(items ...model.Module) *fakeSiblings[model.Module] {
	f := &fakeSiblings[model.Module]{
		parentOf: func(m model.Module) string { return m.CourseID },
		setID:    func(m *model.Module, id string) { m.ID = id },
		apply: func(m *model.Module, patch map[string]interface{}) {
			if v, ok := patch["name"].(string); ok {
				m.Name = v
			}
			if v, ok := patch["description"].(string); ok {
				m.Description = v
			}
			applyOrdering(&m.Ordering, patch)
		},
	}
	for i := range items {
		f.Create(context.Background(), &items[i])
	}
	return f
}

func newFakeClasses(items ...model.Class) *fakeSiblings[model.Class] {
	f := &fakeSiblings[model.Class]{
		parentOf: func(c model.Class) string { return c.ModuleID },
		setID:    func(c *model.Class, id string) { c.ID = id },
		apply: func(c *model.Class, patch map[string]interface{}) {
			if v, ok := patch["name"].(string); ok {
				c.Name = v
			}
			if v, ok := patch["description"].(string); ok {
				c.Description = v
			}
			applyOrdering(&c.Ordering, patch)
		},
	}
	for i := range items {
		f.Create(context.Background(), &items[i])
	}
	return f
}

func newFakeSteps(items ...model.Step) *fakeSiblings[model.Step] {
	f := &fakeSiblings[model.Step]{
		parentOf: func(s model.Step) string { return s.ClassID },
		setID:    func(s *model.Step, id string) { s.ID = id },
		apply: func(s *model.Step, patch map[string]interface{}) {
			if v, ok := patch["name"].(string); ok {
				s.Name = v
			}
			if v, ok := patch["payload"].(datatypes.JSON); ok {
				s.Payload = v
			}
			applyOrdering(&s.Ordering, patch)
		},
	}
	for i := range items {
		f.Create(context.Background(), &items[i])
	}
	return f
}

func mkModule(id, courseID, order string, active bool) model.Module {
	return model.Module{
		UUIDBase: model.UUIDBase{ID: id},
		Name:     "module " + id,
		Ordering: model.Ordering{IsActive: active, Order: order},
		CourseID: courseID,
	}
}

func mkClass(id, moduleID, order string, active bool) model.Class {
	return model.Class{
		UUIDBase: model.UUIDBase{ID: id},
		Name:     "class " + id,
		Ordering: model.Ordering{IsActive: active, Order: order},
		ModuleID: moduleID,
	}
}

func mkStep(id, classID, order string, typ model.StepType, payload interface{}) model.Step {
	raw, _ := json.Marshal(payload)
	return model.Step{
		UUIDBase: model.UUIDBase{ID: id},
		Name:     "step " + id,
		Type:     typ,
		Ordering: model.Ordering{IsActive: true, Order: order},
		ClassID:  classID,
		Payload:  datatypes.JSON(raw),
	}
}

// ---- 课程 ----

type fakeCourses struct {
	mu    sync.Mutex
	items []*model.Course
	seq   int
}

func newFakeCourses(items ...model.Course) *fakeCourses {
	f := &fakeCourses{}
	for i := range items {
		f.Create(context.Background(), &items[i])
	}
	return f
}

func (f *fakeCourses) Create(ctx context.Context, course *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if course.ID == "" {
		f.seq++
		course.ID = fmt.Sprintf("course-%d", f.seq)
	}
	cp := *course
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeCourses) FindByID(ctx context.Context, id string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCourses) List(ctx context.Context, activeOnly bool) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Course
	for _, c := range f.items {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCourses) Update(ctx context.Context, id string, patch map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID != id {
			continue
		}
		if v, ok := patch["name"].(string); ok {
			c.Name = v
		}
		if v, ok := patch["description"].(string); ok {
			c.Description = v
		}
		if v, ok := patch["active"].(bool); ok {
			c.Active = v
		}
		if v, ok := patch["cover_url"].(string); ok {
			c.CoverURL = v
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ---- 完成记录与积分 ----

type completionEvent struct {
	tier   model.CompletionTier
	userID string
	id     string
	at     time.Time
}

type fakeCompletions struct {
	mu     sync.Mutex
	events []completionEvent
	points *fakePoints

	classErr  error
	moduleErr error
	courseErr error
}

func newFakeCompletions(points *fakePoints) *fakeCompletions {
	return &fakeCompletions{points: points}
}

func (f *fakeCompletions) has(tier model.CompletionTier, userID, id string) bool {
	for _, e := range f.events {
		if e.tier == tier && e.userID == userID && e.id == id {
			return true
		}
	}
	return false
}

func (f *fakeCompletions) record(tier model.CompletionTier, userID, id string, at time.Time, award model.PointsAward, fail error) (bool, error) {
	if fail != nil {
		return false, fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.has(tier, userID, id) {
		return false, nil
	}
	f.events = append(f.events, completionEvent{tier: tier, userID: userID, id: id, at: at})
	if f.points != nil && award.Points != 0 {
		f.points.Increment(context.Background(), award.UserID, award.Username, award.Points, award.At)
	}
	return true, nil
}

func (f *fakeCompletions) RecordClass(ctx context.Context, rec *model.ClassCompletion, award model.PointsAward) (bool, error) {
	return f.record(model.TierClass, rec.UserID, rec.ClassID, rec.FinishedAt, award, f.classErr)
}

func (f *fakeCompletions) RecordModule(ctx context.Context, rec *model.ModuleCompletion, award model.PointsAward) (bool, error) {
	return f.record(model.TierModule, rec.UserID, rec.ModuleID, rec.FinishedAt, award, f.moduleErr)
}

func (f *fakeCompletions) RecordCourse(ctx context.Context, rec *model.CourseCompletion, award model.PointsAward) (bool, error) {
	return f.record(model.TierCourse, rec.UserID, rec.CourseID, rec.FinishedAt, award, f.courseErr)
}

func (f *fakeCompletions) completed(tier model.CompletionTier, userID string, ids []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	done := map[string]bool{}
	for _, id := range ids {
		if f.has(tier, userID, id) {
			done[id] = true
		}
	}
	return done, nil
}

func (f *fakeCompletions) CompletedClassIDs(ctx context.Context, userID string, classIDs []string) (map[string]bool, error) {
	return f.completed(model.TierClass, userID, classIDs)
}

func (f *fakeCompletions) CompletedModuleIDs(ctx context.Context, userID string, moduleIDs []string) (map[string]bool, error) {
	return f.completed(model.TierModule, userID, moduleIDs)
}

func (f *fakeCompletions) CompletedCourseIDs(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error) {
	return f.completed(model.TierCourse, userID, courseIDs)
}

func (f *fakeCompletions) CountsSince(ctx context.Context, since time.Time) ([]model.CompletionCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type key struct {
		user string
		tier model.CompletionTier
	}
	counts := map[key]int{}
	for _, e := range f.events {
		if !e.at.Before(since) {
			counts[key{e.userID, e.tier}]++
		}
	}
	var out []model.CompletionCount
	for k, n := range counts {
		out = append(out, model.CompletionCount{UserID: k.user, Tier: k.tier, Count: n})
	}
	return out, nil
}

type fakePoints struct {
	mu   sync.Mutex
	rows map[string]*model.UserPoints

	topCalls int
}

func newFakePoints() *fakePoints {
	return &fakePoints{rows: map[string]*model.UserPoints{}}
}

func (f *fakePoints) Increment(ctx context.Context, userID, username string, delta int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		row = &model.UserPoints{UserID: userID}
		f.rows[userID] = row
	}
	row.Points += delta
	row.Username = username
	row.LastUpdated = at
	return nil
}

func (f *fakePoints) FindByUser(ctx context.Context, userID string) (*model.UserPoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakePoints) Top(ctx context.Context, limit int) ([]model.UserPoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	var out []model.UserPoints
	for _, row := range f.rows {
		if row.Points > 0 {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePoints) CountGreater(ctx context.Context, points int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.Points > points {
			n++
		}
	}
	return n, nil
}

func (f *fakePoints) ListByUsers(ctx context.Context, userIDs []string) ([]model.UserPoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserPoints
	for _, id := range userIDs {
		if row, ok := f.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakePoints) UpdateUsername(ctx context.Context, userID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[userID]; ok {
		row.Username = username
	}
	return nil
}

func (f *fakePoints) total(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[userID]; ok {
		return row.Points
	}
	return 0
}

// ---- 排行榜缓存 ----

type fakeCache struct {
	mu            sync.Mutex
	data          map[string][]byte
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) key(period string, limit int) string {
	return fmt.Sprintf("%s:%d", period, limit)
}

func (c *fakeCache) Get(ctx context.Context, period string, limit int, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[c.key(period, limit)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, period string, limit int, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.key(period, limit)] = raw
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.data = map[string][]byte{}
	return nil
}

// ---- 报名与用户 ----

type fakeEnrollments struct {
	mu    sync.Mutex
	items []model.Enrollment
}

func (f *fakeEnrollments) Create(ctx context.Context, e *model.Enrollment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return false, nil
		}
	}
	f.items = append(f.items, *e)
	return true, nil
}

func (f *fakeEnrollments) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Enrollment
	for _, e := range f.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	items []model.User
	seq   int
}

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		f.seq++
		user.ID = fmt.Sprintf("user-%d", f.seq)
	}
	f.items = append(f.items, *user)
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
