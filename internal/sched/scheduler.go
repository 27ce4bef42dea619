package sched

import (
	"errors"
	"sort"

	"github.com/vcore16/vcore16/internal/cpu"
	"github.com/vcore16/vcore16/internal/log"
)

// ErrNoTasks is returned by Tick when no task remains runnable.
var ErrNoTasks = errors.New("sched: no tasks")

// KernelPID and KernelPriority identify the always-present seed task.
const (
	KernelPID      = 0
	KernelPriority = 10
)

// Scheduler drives a single shared CPU across a priority-weighted
// round-robin ring of tasks. Per the design notes, there is no true
// coroutine: one Tick executes exactly one instruction of the head task.
type Scheduler struct {
	cpu      *cpu.CPU
	tasks    []*Task
	nextPID  uint8
	timeSlot int
	log      *log.Logger

	// roundLeft counts the tasks still to take their turn in the current
	// round; the ring is re-sorted only when it reaches zero.
	roundLeft int
}

// New creates a scheduler driving c, seeded with the kernel task (PID 0,
// priority 10) at the given entry point. timeSlot is TIME_SLOT, the
// scheduling quantum split proportionally across tasks by priority.
func New(c *cpu.CPU, timeSlot int, kernelEntry uint16) *Scheduler {
	s := &Scheduler{
		cpu:      c,
		timeSlot: timeSlot,
		nextPID:  1,
		log:      log.DefaultLogger(),
	}

	s.tasks = append(s.tasks, &Task{
		PID:            KernelPID,
		Name:           "kernel",
		Priority:       KernelPriority,
		ProgramCounter: kernelEntry,
	})

	return s
}

// CreateTask allocates a new PID, copies program starting at entry into
// shared program memory, and appends a new task (priority defaulted to 1)
// to the ring.
func (s *Scheduler) CreateTask(name string, entry uint16, program []byte) *Task {
	s.cpu.Mem.Store().BulkCopy(uint32(entry), program)

	t := &Task{
		PID:            s.nextPID,
		Name:           name,
		Priority:       1,
		ProgramCounter: entry,
	}
	s.nextPID++

	s.tasks = append(s.tasks, t)
	s.log.Info("task created", "pid", t.PID, "entry", entry)

	return t
}

// KillTask removes the task with pid from the ring.
func (s *Scheduler) KillTask(pid uint8) {
	for i, t := range s.tasks {
		if t.PID == pid {
			t.halted = true
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.log.Info("task killed", "pid", pid)

			return
		}
	}
}

// Yield moves the task with pid to the head of the ring with TimeRunning
// reset, surrendering the remainder of its current slice.
func (s *Scheduler) Yield(pid uint8) {
	for i, t := range s.tasks {
		if t.PID == pid {
			t.TimeRunning = 0
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.tasks = append([]*Task{t}, s.tasks...)

			return
		}
	}
}

// Tasks returns the current task ring, head first. The returned slice must
// not be mutated by the caller.
func (s *Scheduler) Tasks() []*Task { return s.tasks }

// recomputeSlices implements step 1: time_slice_i = floor((priority_i /
// total) * TIME_SLOT), minimum 1.
func (s *Scheduler) recomputeSlices() {
	total := 0
	for _, t := range s.tasks {
		total += int(t.Priority)
	}

	if total == 0 {
		return
	}

	for _, t := range s.tasks {
		slice := (int(t.Priority) * s.timeSlot) / total
		if slice < 1 {
			slice = 1
		}

		t.TimeSlice = slice
	}
}

// stableSortAscending implements step 2. Sorting ascending by priority means
// lower-priority tasks run first — this is the scheduler's preserved
// priority-ascending quirk (see DESIGN.md), not a defect introduced here.
func (s *Scheduler) stableSortAscending() {
	sort.SliceStable(s.tasks, func(i, j int) bool {
		return s.tasks[i].Priority < s.tasks[j].Priority
	})
}

// Tick runs exactly one instruction of the head task and performs the
// scheduler accounting: slice recomputation, a stable sort at the start of
// each round (once every task in the ring has had its turn), single step,
// exhaustion rotation, and halt removal.
func (s *Scheduler) Tick() error {
	if len(s.tasks) == 0 {
		return ErrNoTasks
	}

	s.recomputeSlices()

	if s.roundLeft <= 0 {
		s.stableSortAscending()
		s.roundLeft = len(s.tasks)
	}

	head := s.tasks[0]

	s.cpu.SetPC(head.ProgramCounter)
	s.cpu.Halted = false

	if err := s.cpu.Step(); err != nil {
		return err
	}

	head.ProgramCounter = s.cpu.PC()
	head.TimeRunning++

	switch {
	case s.cpu.Halted:
		head.halted = true
		s.tasks = s.tasks[1:]
		s.cpu.Halted = false
		s.roundLeft--
	case head.TimeRunning >= head.TimeSlice:
		head.TimeRunning = 0
		s.tasks = append(s.tasks[1:], head)
		s.roundLeft--
	}

	return nil
}
