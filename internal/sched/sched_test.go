package sched_test

import (
	"testing"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/cpu"
	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/memory"
	"github.com/vcore16/vcore16/internal/sched"
)

func newTestScheduler(t *testing.T) (*sched.Scheduler, *cpu.CPU) {
	t.Helper()

	store := memory.NewStore()
	sections := []bus.MemorySection{
		{Name: "boot", Type: bus.Boot, StartAddress: 0, PageCount: 32},
	}
	b := bus.NewBus(store, sections)

	c := cpu.New(b, irq.NewQueue(), irq.NewVectorTable())
	c.SetStack(0xF000, 0x100)

	s := sched.New(c, 100, 0)

	return s, c
}

// Two tasks with unequal priority should each receive a nonzero share of
// ticks proportional to priority, within the invariant-6 tolerance, over a
// window where priorities are held constant.
func TestSchedulerPriorityFairness(t *testing.T) {
	t.Parallel()

	s, c := newTestScheduler(t)

	loop := []byte{byte(cpu.NOP), byte(cpu.BRN), 0x00, 0x00} // NOP; BRN 0 (infinite loop)
	c.Mem.Store().BulkCopy(0, loop)                          // kernel idles at PC 0 too

	lowPrio := s.CreateTask("low", 0x1000, loop)
	lowPrio.Priority = 1

	hiPrio := s.CreateTask("high", 0x2000, loop)
	hiPrio.Priority = 3

	// Kill the kernel task so only the two test tasks compete for ticks.
	s.KillTask(sched.KernelPID)

	ticksLow, ticksHigh := 0, 0

	for i := 0; i < 400; i++ {
		before := s.Tasks()
		var headPID uint8
		if len(before) > 0 {
			headPID = before[0].PID
		}

		if err := s.Tick(); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}

		switch headPID {
		case lowPrio.PID:
			ticksLow++
		case hiPrio.PID:
			ticksHigh++
		}
	}

	if ticksLow == 0 || ticksHigh == 0 {
		t.Fatalf("expected both tasks to receive ticks, got low=%d high=%d", ticksLow, ticksHigh)
	}

	// Higher priority should receive a larger share. The scheduler's
	// ascending-priority quirk affects ORDER (who goes first each round),
	// not the overall proportional share earned via time_slice.
	if ticksHigh <= ticksLow {
		t.Errorf("expected high-priority task to accumulate more ticks: low=%d high=%d", ticksLow, ticksHigh)
	}
}

func TestSchedulerKillRemovesTask(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)

	halt := []byte{byte(cpu.HLT)}
	task := s.CreateTask("transient", 0x1000, halt)

	s.KillTask(task.PID)

	for _, tk := range s.Tasks() {
		if tk.PID == task.PID {
			t.Fatalf("killed task %d still present in ring", task.PID)
		}
	}
}

func TestSchedulerHaltRemovesTaskAutomatically(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	s.KillTask(sched.KernelPID)

	halt := []byte{byte(cpu.HLT)}
	task := s.CreateTask("halts-immediately", 0x1000, halt)

	if err := s.Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if !task.Halted() {
		t.Error("task.Halted() = false after executing HLT")
	}

	for _, tk := range s.Tasks() {
		if tk.PID == task.PID {
			t.Fatal("halted task was not removed from the ring")
		}
	}
}
