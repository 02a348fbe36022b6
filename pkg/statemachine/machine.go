package statemachine

import "github.com/junbin-yang/go-fsm/pkg/logger"

// binding 状态与回调的绑定
type binding[T comparable] struct {
	state T
	fn    func()
}

// Machine 事件驱动的状态机：记录当前状态，并在切换到某个状态时
// 按注册顺序同步调用绑定到该状态的回调。
//
// 任意状态之间都可以切换，不做转换合法性校验。Machine 不是并发安全的，
// 多个 goroutine 使用同一实例时需由调用方串行化。
type Machine[T comparable] struct {
	current  T
	bindings []binding[T]

	dispatching bool
	pending     []T

	opts options
}

// New 创建状态机，初始状态为 initial，不触发任何回调
func New[T comparable](initial T, opts ...Option) *Machine[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Machine[T]{
		current: initial,
		opts:    o,
	}
}

// Current 返回当前状态
func (m *Machine[T]) Current() T {
	return m.current
}

// Len 返回已注册的绑定数量
func (m *Machine[T]) Len() int {
	return len(m.bindings)
}

// When 注册进入 state 时执行的回调。
// 同一状态可注册多个回调，按注册顺序执行；回调永久有效。
func (m *Machine[T]) When(state T, fn func()) {
	if fn == nil {
		panic("statemachine: nil callback")
	}
	m.bindings = append(m.bindings, binding[T]{state: state, fn: fn})
}

// Switch 切换到 next 并同步执行所有绑定到 next 的回调。
// 切换到当前状态同样会触发回调。
//
// 回调中再次调用 Switch 时，新的切换会排队，待当前分发完成后依次执行，
// 最外层的 Switch 在队列清空后才返回。回调中的 panic 原样向上传播。
func (m *Machine[T]) Switch(next T) {
	if m.dispatching {
		m.pending = append(m.pending, next)
		if !m.debugEnabled() {
			return
		}
		m.opts.logger.Debug("switch queued",
			logger.String("machine", m.opts.name),
			logger.Any("to", next),
		)
		return
	}

	m.dispatching = true
	defer func() {
		m.dispatching = false
		m.pending = nil
	}()

	m.transition(next)
	for len(m.pending) > 0 {
		next = m.pending[0]
		m.pending = m.pending[1:]
		m.transition(next)
	}
}

// transition 更新当前状态并分发匹配的回调
func (m *Machine[T]) transition(next T) {
	from := m.current
	m.current = next

	// 分发期间新注册的绑定不参与本次分发
	bindings := m.bindings
	matched := 0
	for _, b := range bindings {
		if b.state == next {
			matched++
			b.fn()
		}
	}

	if !m.debugEnabled() {
		return
	}
	m.opts.logger.Debug("state switched",
		logger.String("machine", m.opts.name),
		logger.Any("from", from),
		logger.Any("to", next),
		logger.Int("matched", matched),
	)
}

// debugEnabled 日志关闭时跳过字段构造，避免分发路径上的分配
func (m *Machine[T]) debugEnabled() bool {
	return logger.Enabled(m.opts.logger, logger.DebugLevel)
}
