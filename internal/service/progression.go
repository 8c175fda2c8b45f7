package service

import (
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"sort"
)

// 完成各层级获得的积分
const (
	ClassCompletionPoints  = 5
	ModuleCompletionPoints = 10
	CourseCompletionPoints = 100
)

func orderLess(a, b string) bool {
	na, okA := model.ParseOrder(a)
	nb, okB := model.ParseOrder(b)
	switch {
	case okA && okB:
		return na < nb
	case okA != okB:
		// 无法解析的 order 排在所有数字之后
		return okA
	default:
		return false
	}
}

// SortByOrder 按 order 数值稳定排序，返回新切片
func SortByOrder[T model.Sibling[T]](items []T) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return orderLess(sorted[i].OrderValue(), sorted[j].OrderValue())
	})
	return sorted
}

// ActiveInOrder 过滤未发布的实体并按 order 排序，即学员可见的解锁链
func ActiveInOrder[T model.Sibling[T]](items []T) []T {
	active := make([]T, 0, len(items))
	for _, item := range items {
		if item.Active() {
			active = append(active, item)
		}
	}
	return SortByOrder(active)
}

// IsAvailable 第一个已发布的同级实体总是可用；其余要求前一个已完成
func IsAvailable[T model.Sibling[T]](siblings []T, index int, completed map[string]bool) bool {
	if index < 0 || index >= len(siblings) {
		return false
	}
	if index == 0 {
		return true
	}
	return completed[siblings[index-1].SiblingID()]
}

// IsLastActive id 是否为已发布实体中 order 最大的一个
func IsLastActive[T model.Sibling[T]](items []T, id string) bool {
	active := ActiveInOrder(items)
	if len(active) == 0 {
		return false
	}
	return active[len(active)-1].SiblingID() == id
}

// Resequence 按 sequence 给出的顺序重新编号为 1..N。
// sequence 必须是 current 全部 id 的一个排列
func Resequence[T model.Sibling[T]](current []T, sequence []string) ([]T, []model.OrderUpdate, error) {
	if len(sequence) != len(current) {
		return nil, nil, util.ErrInvalidSequence
	}

	byID := make(map[string]T, len(current))
	for _, item := range current {
		byID[item.SiblingID()] = item
	}
	if len(byID) != len(current) {
		return nil, nil, util.ErrInvalidSequence
	}

	seen := make(map[string]bool, len(sequence))
	reordered := make([]T, 0, len(sequence))
	updates := make([]model.OrderUpdate, 0, len(sequence))
	for i, id := range sequence {
		item, ok := byID[id]
		if !ok || seen[id] {
			return nil, nil, util.ErrInvalidSequence
		}
		seen[id] = true

		order := model.FormatOrder(i + 1)
		reordered = append(reordered, item.WithOrder(order))
		updates = append(updates, model.OrderUpdate{ID: id, Order: order})
	}
	return reordered, updates, nil
}

// Reorder 乐观更新：先在内存中重排，persist 失败时原样返回 current
func Reorder[T model.Sibling[T]](current []T, sequence []string, persist func([]model.OrderUpdate) error) ([]T, error) {
	reordered, updates, err := Resequence(current, sequence)
	if err != nil {
		return current, err
	}
	if err := persist(updates); err != nil {
		return current, err
	}
	return reordered, nil
}
