package jobs

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"mush/ast"
)

// Manager is the job table of spec.md §3-§4: every running or terminated
// job a session knows about, keyed by id. There is no dedicated SIGCHLD
// handler as in the C original — Manager is the single point through
// which job records are mutated, and every mutation happens under mu, so
// the supervise goroutines racing each other and the caller's own calls
// never need external synchronization.
type Manager struct {
	mu          sync.Mutex
	jobs        map[int]*Job
	order       []int // insertion order, for Show
	nextID      int
	initialized bool

	wakeCh chan struct{} // closed and replaced whenever any job's status changes
	sigCh  chan os.Signal
}

func NewManager() *Manager {
	return &Manager{
		jobs:   make(map[int]*Job),
		wakeCh: make(chan struct{}),
		nextID: -1, // first job gets id 0
	}
}

// Init prepares the manager for use. It must be called before Run, and
// must not be called twice without an intervening Fini.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return &StateError{Reason: "manager already initialized"}
	}
	m.sigCh = make(chan os.Signal, 1)
	signal.Notify(m.sigCh, syscall.SIGINT)
	m.initialized = true
	return nil
}

// Fini tears down the manager, canceling any job still running so no
// orphaned process group outlives the session.
func (m *Manager) Fini() error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return &StateError{Reason: "manager not initialized"}
	}
	var pgids []int
	var dones []chan struct{}
	for _, j := range m.jobs {
		if !j.Status.Terminal() {
			if j.Pgid > 0 {
				pgids = append(pgids, j.Pgid)
			}
			dones = append(dones, j.done)
		}
	}
	m.initialized = false
	m.mu.Unlock()

	for _, pgid := range pgids {
		syscall.Kill(-pgid, syscall.SIGKILL)
	}
	for _, done := range dones {
		<-done
	}
	if m.sigCh != nil {
		signal.Stop(m.sigCh)
	}

	m.mu.Lock()
	m.jobs = make(map[int]*Job)
	m.order = nil
	m.mu.Unlock()

	return nil
}

// notify wakes every goroutine blocked in Pause by closing and replacing
// wakeCh. Must be called with mu held.
func (m *Manager) notify() {
	close(m.wakeCh)
	m.wakeCh = make(chan struct{})
}

// Run starts p as a new job and returns its id immediately; the job's
// stages run concurrently with the caller.
func (m *Manager) Run(p *ast.Pipeline) (int, error) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return 0, &StateError{Reason: "manager not initialized"}
	}
	m.mu.Unlock()

	if p == nil || len(p.Commands) == 0 {
		return 0, &ArgError{Reason: "empty pipeline"}
	}

	stages, pgid, capture, err := launch(p)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	j := &Job{
		ID:          id,
		Pgid:        pgid,
		Status:      StatusRunning,
		Pipeline:    p.Clone(),
		captureFile: capture,
		done:        make(chan struct{}),
	}
	if capture != nil {
		j.drainDone = make(chan struct{})
	}
	m.jobs[id] = j
	m.order = append(m.order, id)
	m.mu.Unlock()

	if capture != nil {
		go m.drain(j)
	}
	go m.supervise(j, stages)

	return id, nil
}

// drain reads a capturing job's output pipe to completion. It must be
// started before supervise begins reaping stages, so nothing is lost to
// a closed write end racing the read.
func (m *Manager) drain(j *Job) {
	buf := make([]byte, 4096)
	for {
		n, err := j.captureFile.Read(buf)
		if n > 0 {
			m.mu.Lock()
			j.captured = append(j.captured, buf[:n]...)
			m.mu.Unlock()
		}
		if err != nil {
			break
		}
	}
	j.captureFile.Close()

	close(j.drainDone)
}

// supervise waits for every stage of a job's pipeline in order and
// finalizes the job's status once all stages (and, if capturing, the
// drain goroutine) have finished. Wait is per-pid and may be called in
// any order regardless of which child actually exits first, so a simple
// sequential loop reproduces the same end state an event-driven reaper
// would reach.
func (m *Manager) supervise(j *Job, stages []*exec.Cmd) {
	results := make([]ExitStatus, len(stages))
	for i, cmd := range stages {
		err := cmd.Wait()
		results[i] = waitStageStatus(cmd, err)
	}

	if j.drainDone != nil {
		<-j.drainDone
	}

	final := aggregateStatus(results)

	m.mu.Lock()
	j.ExitStatus = final
	j.Status = classify(final)
	close(j.done)
	m.notify()
	m.mu.Unlock()
}

func (m *Manager) get(id int) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return j, nil
}

// Wait blocks until job id terminates and returns its final status. It
// is driven entirely by channel receive, never by polling: each call
// blocks on the job's own done channel, closed exactly once by
// supervise.
func (m *Manager) Wait(id int) (ExitStatus, error) {
	m.mu.Lock()
	j, err := m.get(id)
	if err != nil {
		m.mu.Unlock()
		return ExitStatus{}, err
	}
	done := j.done
	m.mu.Unlock()

	<-done

	m.mu.Lock()
	defer m.mu.Unlock()
	return j.ExitStatus, nil
}

// Poll reports a terminated job's status without blocking. It returns
// NotTerminalError if the job is still running.
func (m *Manager) Poll(id int) (ExitStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return ExitStatus{}, err
	}
	if !j.Status.Terminal() {
		return ExitStatus{}, &NotTerminalError{ID: id}
	}
	return j.ExitStatus, nil
}

// Cancel sends SIGKILL to a running job's process group. It is a no-op
// error, not a panic, to cancel a job that has already terminated.
func (m *Manager) Cancel(id int) error {
	m.mu.Lock()
	j, err := m.get(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if j.Status.Terminal() {
		m.mu.Unlock()
		return &StateError{Reason: fmt.Sprintf("job %d already terminated", id)}
	}
	if j.cancelRequested {
		m.mu.Unlock()
		return &StateError{Reason: fmt.Sprintf("job %d already canceled", id)}
	}
	j.cancelRequested = true
	pgid := j.Pgid
	m.mu.Unlock()

	if pgid > 0 {
		if kerr := syscall.Kill(-pgid, syscall.SIGKILL); kerr != nil {
			return &OSError{Op: "kill", Err: kerr}
		}
	}
	return nil
}

// Expunge removes a terminated job from the table. Expunging a job still
// running is refused rather than silently leaking its process group.
func (m *Manager) Expunge(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return err
	}
	if !j.Status.Terminal() {
		return &NotTerminalError{ID: id}
	}
	delete(m.jobs, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetOutput returns a capturing job's accumulated output. The second
// return value is false if the job wasn't run with output capture
// requested at all; it is safe to call before the job terminates, in
// which case the bytes drained so far are returned.
func (m *Manager) GetOutput(id int) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return nil, false
	}
	if j.Pipeline == nil || !j.Pipeline.CaptureOutput {
		return nil, false
	}
	return j.captured, true
}

// Pause blocks until some job's status changes, or the process receives
// SIGINT. It has no return value: callers are expected to re-poll the
// jobs they care about afterward, exactly as they would after waking
// from sigsuspend in the reference design.
func (m *Manager) Pause() {
	m.mu.Lock()
	wake := m.wakeCh
	sig := m.sigCh
	m.mu.Unlock()

	select {
	case <-wake:
	case <-sig:
	}
}

// Show writes a line per tracked job, in the order each was created, in
// the style of vars.Store.Show: stable, script-parseable, one job per
// line.
func (m *Manager) Show(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		j := m.jobs[id]
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\t", j.ID, j.Pgid, j.Status); err != nil {
			return &OSError{Op: "write", Err: err}
		}
		ast.ShowPipeline(w, j.Pipeline)
		if _, err := fmt.Fprintln(w); err != nil {
			return &OSError{Op: "write", Err: err}
		}
	}
	return nil
}
