package model

import "strconv"

// Ordering 同级实体的排序与发布状态。order 以字符串存储，按数值比较
type Ordering struct {
	IsActive bool   `gorm:"not null" json:"isActive"`
	Order    string `gorm:"column:sort_order;size:10;not null" json:"order"`
}

func (o Ordering) Active() bool {
	return o.IsActive
}

func (o Ordering) OrderValue() string {
	return o.Order
}

// Sibling 可在父节点下排序的实体（模块、课时、步骤）
type Sibling[T any] interface {
	SiblingID() string
	Active() bool
	OrderValue() string
	WithOrder(order string) T
}

// OrderUpdate 重排时写入的一条记录
type OrderUpdate struct {
	ID    string
	Order string
}

// ParseOrder 解析 order 字段，非数字返回 false
func ParseOrder(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func FormatOrder(position int) string {
	return strconv.Itoa(position)
}
