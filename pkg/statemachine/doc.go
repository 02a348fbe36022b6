// Package statemachine 提供一个极简的事件驱动状态机。
//
// 状态类型由调用方以命名整数类型声明，Enum 负责名称与序号的映射，
// 也可以用 generator 子包从状态列表生成完整的类型定义：
//
//	type Door int
//
//	const (
//		Unlocked Door = iota
//		Locked
//	)
//
//	m := statemachine.New(Unlocked)
//	m.When(Locked, func() { fmt.Println("locked") })
//	m.Switch(Locked)
package statemachine
