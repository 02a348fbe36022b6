package statemachine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/junbin-yang/go-fsm/pkg/logger"
)

type lockState int

const (
	unlocked lockState = iota
	locked
)

type phase int

const (
	phaseA phase = iota
	phaseB
	phaseC
)

func TestMachine_New(t *testing.T) {
	m := New(phaseB)
	if m.Current() != phaseB {
		t.Errorf("初始状态错误: got %v, want %v", m.Current(), phaseB)
	}
	if m.Len() != 0 {
		t.Errorf("初始绑定数量错误: got %d, want 0", m.Len())
	}
}

func TestMachine_SwitchUpdatesCurrent(t *testing.T) {
	m := New(phaseA)
	m.Switch(phaseC)
	if m.Current() != phaseC {
		t.Errorf("状态切换失败: got %v, want %v", m.Current(), phaseC)
	}
	m.Switch(phaseA)
	if m.Current() != phaseA {
		t.Errorf("状态切换失败: got %v, want %v", m.Current(), phaseA)
	}
}

func TestMachine_NonMatchingStateSkipped(t *testing.T) {
	m := New(phaseA)
	calls := 0
	m.When(phaseB, func() { calls++ })

	m.Switch(phaseC)
	if calls != 0 {
		t.Errorf("切换到其他状态不应触发回调: calls=%d", calls)
	}
}

func TestMachine_MatchingStateFiresOnce(t *testing.T) {
	m := New(phaseA)
	calls := 0
	m.When(phaseB, func() { calls++ })

	m.Switch(phaseB)
	if calls != 1 {
		t.Errorf("回调应执行一次: calls=%d", calls)
	}
}

func TestMachine_RegistrationOrder(t *testing.T) {
	m := New(phaseA)
	var order []string
	m.When(phaseB, func() { order = append(order, "c1") })
	m.When(phaseC, func() { order = append(order, "other") })
	m.When(phaseB, func() { order = append(order, "c2") })
	m.When(phaseB, func() { order = append(order, "c3") })

	m.Switch(phaseB)

	got := strings.Join(order, ",")
	if got != "c1,c2,c3" {
		t.Errorf("回调顺序错误: got %s, want c1,c2,c3", got)
	}
}

func TestMachine_RepeatedSwitchFiresEveryTime(t *testing.T) {
	m := New(phaseA)
	calls := 0
	m.When(phaseB, func() { calls++ })

	m.Switch(phaseB)
	m.Switch(phaseB)
	if calls != 2 {
		t.Errorf("自切换也应触发回调: calls=%d, want 2", calls)
	}

	m.Switch(phaseC)
	m.Switch(phaseB)
	if calls != 3 {
		t.Errorf("回调不应只触发一次: calls=%d, want 3", calls)
	}
}

func TestMachine_SelfTransitionFromInitial(t *testing.T) {
	m := New(phaseA)
	calls := 0
	m.When(phaseA, func() { calls++ })

	m.Switch(phaseA)
	if calls != 1 {
		t.Errorf("切换到初始状态应触发回调: calls=%d", calls)
	}
}

func TestMachine_DuplicateBindingsAllFire(t *testing.T) {
	m := New(phaseA)
	calls := 0
	fn := func() { calls++ }
	m.When(phaseB, fn)
	m.When(phaseB, fn)

	if m.Len() != 2 {
		t.Fatalf("重复绑定不应合并: Len=%d", m.Len())
	}
	m.Switch(phaseB)
	if calls != 2 {
		t.Errorf("重复绑定都应执行: calls=%d", calls)
	}
}

func TestMachine_NilCallbackPanics(t *testing.T) {
	m := New(phaseA)
	defer func() {
		if recover() == nil {
			t.Error("注册 nil 回调应 panic")
		}
	}()
	m.When(phaseB, nil)
}

func TestMachine_CallbackSeesNewState(t *testing.T) {
	m := New(phaseA)
	var seen phase
	m.When(phaseB, func() { seen = m.Current() })

	m.Switch(phaseB)
	if seen != phaseB {
		t.Errorf("回调中当前状态错误: got %v, want %v", seen, phaseB)
	}
}

func TestMachine_NestedSwitchIsQueued(t *testing.T) {
	m := New(phaseA)
	var order []string

	m.When(phaseB, func() {
		order = append(order, "b1")
		m.Switch(phaseC)
		if m.Current() != phaseB {
			t.Errorf("嵌套切换应在当前分发完成后执行")
		}
	})
	m.When(phaseB, func() { order = append(order, "b2") })
	m.When(phaseC, func() { order = append(order, "c") })

	m.Switch(phaseB)

	got := strings.Join(order, ",")
	if got != "b1,b2,c" {
		t.Errorf("嵌套切换执行顺序错误: got %s, want b1,b2,c", got)
	}
	if m.Current() != phaseC {
		t.Errorf("最终状态错误: got %v, want %v", m.Current(), phaseC)
	}
}

func TestMachine_NestedSwitchChain(t *testing.T) {
	m := New(phaseA)
	var order []phase

	m.When(phaseB, func() {
		order = append(order, phaseB)
		m.Switch(phaseC)
	})
	m.When(phaseC, func() {
		order = append(order, phaseC)
		if len(order) < 4 {
			m.Switch(phaseB)
		}
	})

	m.Switch(phaseB)

	want := []phase{phaseB, phaseC, phaseB, phaseC}
	if len(order) != len(want) {
		t.Fatalf("执行次数错误: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("第 %d 次执行错误: got %v, want %v", i, order[i], want[i])
		}
	}
}

func TestMachine_WhenDuringDispatch(t *testing.T) {
	m := New(phaseA)
	late := 0
	m.When(phaseB, func() {
		m.When(phaseB, func() { late++ })
	})

	m.Switch(phaseB)
	if late != 0 {
		t.Errorf("分发期间注册的回调不应参与本次分发: late=%d", late)
	}

	m.Switch(phaseB)
	if late != 1 {
		t.Errorf("分发期间注册的回调应在下次分发生效: late=%d", late)
	}
}

func TestMachine_PanicPropagates(t *testing.T) {
	m := New(phaseA)
	after := 0
	m.When(phaseB, func() { panic("boom") })
	m.When(phaseC, func() { after++ })

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("panic 应原样传播: got %v", r)
			}
		}()
		m.Switch(phaseB)
	}()

	if m.Current() != phaseB {
		t.Errorf("panic 前状态应已更新: got %v", m.Current())
	}

	// panic 之后状态机仍可使用
	m.Switch(phaseC)
	if after != 1 {
		t.Errorf("panic 后切换未执行回调: after=%d", after)
	}
}

func TestMachine_StringStates(t *testing.T) {
	m := New("idle")
	calls := 0
	m.When("running", func() { calls++ })

	m.Switch("running")
	if calls != 1 || m.Current() != "running" {
		t.Errorf("字符串状态切换失败: calls=%d current=%s", calls, m.Current())
	}
}

func TestMachine_Logging(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, logger.DebugLevel)

	m := New(unlocked, WithName("door"), WithLogger(l))
	m.When(locked, func() {})
	m.Switch(locked)
	_ = l.Sync()

	out := buf.String()
	for _, want := range []string{"state switched", "door", "matched"} {
		if !strings.Contains(out, want) {
			t.Errorf("日志缺少 %q: %s", want, out)
		}
	}
}

// TestMachine_Turnstile 门锁场景端到端测试
func TestMachine_Turnstile(t *testing.T) {
	states := MustEnum[lockState]("Unlocked", "Locked")
	if Ordinal(unlocked) != 0 || Ordinal(locked) != 1 {
		t.Fatalf("序号错误: Unlocked=%d Locked=%d", Ordinal(unlocked), Ordinal(locked))
	}
	if states.Name(locked) != "Locked" {
		t.Errorf("状态名错误: got %s", states.Name(locked))
	}

	m := New(unlocked)
	if m.Current() != unlocked {
		t.Fatalf("初始状态错误: got %v", m.Current())
	}

	called := false
	m.When(locked, func() { called = true })
	if called {
		t.Fatal("注册时不应触发回调")
	}

	m.Switch(locked)
	if !called {
		t.Error("切换到 Locked 后回调未执行")
	}
	if m.Current() != locked {
		t.Errorf("状态切换失败: got %v, want %v", m.Current(), locked)
	}
}

// TestMachine_SwitchNoAllocWhenLogOff 日志关闭时分发不应产生分配
func TestMachine_SwitchNoAllocWhenLogOff(t *testing.T) {
	if raceEnabled {
		t.Skip("race 模式下分配统计不准确")
	}

	infoLogger := logger.New(&bytes.Buffer{}, logger.InfoLevel)
	cases := map[string]*Machine[phase]{
		"default":    New(phaseA),
		"info level": New(phaseA, WithLogger(infoLogger)),
	}

	for name, m := range cases {
		calls := 0
		m.When(phaseB, func() { calls++ })
		m.When(phaseC, func() {})

		allocs := testing.AllocsPerRun(100, func() {
			m.Switch(phaseB)
		})
		if allocs != 0 {
			t.Errorf("%s: Switch 分配次数 %v, want 0", name, allocs)
		}
		if calls == 0 {
			t.Errorf("%s: 回调未执行", name)
		}
	}
}
