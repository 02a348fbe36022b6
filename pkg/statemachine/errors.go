package statemachine

import "errors"

var (
	// ErrEmptyEnum 状态列表为空时返回
	ErrEmptyEnum = errors.New("state list is empty")

	// ErrDuplicateState 状态名重复时返回
	ErrDuplicateState = errors.New("duplicate state")

	// ErrInvalidStateName 状态名不是合法标识符时返回
	ErrInvalidStateName = errors.New("invalid state name")

	// ErrUnknownState 状态名或状态值未声明时返回
	ErrUnknownState = errors.New("unknown state")
)
