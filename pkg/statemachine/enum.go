package statemachine

import (
	"fmt"
	"go/token"
)

// Enum 将有序的状态名列表绑定到整数状态类型 T，
// 第 i 个名称对应的状态值序号为 i。
//
// 每个声明处应定义独立的命名类型（如 type Door int），
// 不同类型之间的比较会在编译期被拒绝。
type Enum[T ~int] struct {
	names []string
	index map[string]T
}

// NewEnum 创建状态枚举，列表为空、名称重复或非法时返回错误
func NewEnum[T ~int](names ...string) (*Enum[T], error) {
	if len(names) == 0 {
		return nil, ErrEmptyEnum
	}

	e := &Enum[T]{
		names: make([]string, len(names)),
		index: make(map[string]T, len(names)),
	}
	for i, name := range names {
		if !token.IsIdentifier(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStateName, name)
		}
		if _, exists := e.index[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateState, name)
		}
		e.names[i] = name
		e.index[name] = T(i)
	}
	return e, nil
}

// MustEnum 同 NewEnum，出错时 panic，适用于包级变量声明
func MustEnum[T ~int](names ...string) *Enum[T] {
	e, err := NewEnum[T](names...)
	if err != nil {
		panic("statemachine: " + err.Error())
	}
	return e
}

// Len 返回状态数量
func (e *Enum[T]) Len() int {
	return len(e.names)
}

// Values 按声明顺序返回全部状态值
func (e *Enum[T]) Values() []T {
	values := make([]T, len(e.names))
	for i := range e.names {
		values[i] = T(i)
	}
	return values
}

// Contains 判断 v 是否为已声明的状态
func (e *Enum[T]) Contains(v T) bool {
	return int(v) >= 0 && int(v) < len(e.names)
}

// Name 返回状态名，未声明的值返回 "T(n)" 形式
func (e *Enum[T]) Name(v T) string {
	if !e.Contains(v) {
		return fmt.Sprintf("%T(%d)", v, int(v))
	}
	return e.names[int(v)]
}

// Parse 根据状态名查找状态值
func (e *Enum[T]) Parse(name string) (T, error) {
	v, ok := e.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownState, name)
	}
	return v, nil
}

// Ordinal 返回状态值的声明序号
func Ordinal[T ~int](v T) int {
	return int(v)
}
