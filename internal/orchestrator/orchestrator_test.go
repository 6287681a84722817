package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/session"
)

// --- Fakes ---

type fakeSession struct {
	dir string
}

func (s *fakeSession) ProfileDir() string { return s.dir }

type fakeFactory struct {
	newCalls   int
	resetCalls int
	closeCalls int
	newErr     error
}

func (f *fakeFactory) New(ctx context.Context, profileDir, proxy string) (session.Session, error) {
	f.newCalls++
	if f.newErr != nil {
		return nil, f.newErr
	}
	return &fakeSession{dir: profileDir}, nil
}

func (f *fakeFactory) Reset(ctx context.Context, sess session.Session) error {
	f.resetCalls++
	return nil
}

func (f *fakeFactory) Close(sess session.Session) error {
	f.closeCalls++
	return nil
}

type fakeDriver struct {
	name string

	// loginResults is consumed one entry per Login call; when the
	// script runs out, the last entry repeats.
	loginResults []bool
	loginErr     error
	loginCalls   int

	checkResult session.CheckResult
	checkErr    error
	checkCalls  int
}

func (d *fakeDriver) Service() string { return d.name }

func (d *fakeDriver) Login(ctx context.Context, sess session.Session, secret, proxy string) (bool, error) {
	d.loginCalls++
	if d.loginErr != nil {
		return false, d.loginErr
	}
	if len(d.loginResults) == 0 {
		return true, nil
	}
	idx := d.loginCalls - 1
	if idx >= len(d.loginResults) {
		idx = len(d.loginResults) - 1
	}
	return d.loginResults[idx], nil
}

func (d *fakeDriver) Check(ctx context.Context, sess session.Session, secret, proxy string) (session.CheckResult, error) {
	d.checkCalls++
	if d.checkErr != nil {
		return session.CheckResult{}, d.checkErr
	}
	return d.checkResult, nil
}

// --- Harness ---

type harness struct {
	orch     *Orchestrator
	taskRepo *repo.TaskRepo
	factory  *fakeFactory
	driver   *fakeDriver
	failures *FailureLog
}

func newHarness(t *testing.T, driver *fakeDriver) *harness {
	t.Helper()

	dir := t.TempDir()
	db, err := repo.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	taskRepo := repo.NewTaskRepo(db)
	factory := &fakeFactory{}
	failures := NewFailureLog(filepath.Join(dir, "failures.json"))

	registry := session.NewRegistry()
	registry.Register(driver)

	orch := New(Config{
		TaskRepo:        taskRepo,
		Registry:        registry,
		Factory:         factory,
		Failures:        failures,
		MaxLoginRetries: 2,
		ProfileRoot:     filepath.Join(dir, "profiles"),
	})

	return &harness{
		orch:     orch,
		taskRepo: taskRepo,
		factory:  factory,
		driver:   driver,
		failures: failures,
	}
}

var testPair = domain.Pair{
	CredentialID: 1,
	SecretValue:  "secret-1",
	Proxy:        "http://proxy:8080",
}

func (h *harness) task(t *testing.T) *domain.Task {
	t.Helper()
	task, err := h.taskRepo.Get(context.Background(), testPair.CredentialID, testPair.Proxy, h.driver.name)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	return task
}

// --- ProcessPair Tests ---

func TestProcessPair_Success_FirstAttempt(t *testing.T) {
	driver := &fakeDriver{
		name:        "svc",
		checkResult: session.CheckResult{OK: true, Raw: "37"},
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	if task.State != domain.TaskStateSuccess {
		t.Errorf("expected SUCCESS, got %s", task.State)
	}
	if task.Point != 37 {
		t.Errorf("expected point 37, got %d", task.Point)
	}
	if task.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", task.RetryCount)
	}
	if driver.loginCalls != 1 || driver.checkCalls != 1 {
		t.Errorf("expected 1 login and 1 check, got %d/%d", driver.loginCalls, driver.checkCalls)
	}
}

func TestProcessPair_Success_SecondAttempt(t *testing.T) {
	driver := &fakeDriver{
		name:         "svc",
		loginResults: []bool{false, true},
		checkResult:  session.CheckResult{OK: true, Raw: "37"},
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	if task.State != domain.TaskStateSuccess {
		t.Errorf("expected SUCCESS, got %s", task.State)
	}
	if task.Point != 37 {
		t.Errorf("expected point 37, got %d", task.Point)
	}
	if task.RetryCount != 2 {
		t.Errorf("expected retry count 2, got %d", task.RetryCount)
	}
	if driver.loginCalls != 2 {
		t.Errorf("expected 2 login attempts, got %d", driver.loginCalls)
	}
	if driver.checkCalls != 1 {
		t.Errorf("check must run exactly once, got %d", driver.checkCalls)
	}
	// Each attempt gets a fresh session, torn down on exit.
	if h.factory.newCalls != 2 || h.factory.resetCalls != 2 || h.factory.closeCalls != 2 {
		t.Errorf("expected 2 new/reset/close, got %d/%d/%d",
			h.factory.newCalls, h.factory.resetCalls, h.factory.closeCalls)
	}
}

func TestProcessPair_LoginExhausted(t *testing.T) {
	driver := &fakeDriver{
		name:         "svc",
		loginResults: []bool{false},
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	if task.State != domain.TaskStateFailed {
		t.Errorf("expected FAILED, got %s", task.State)
	}
	if task.Point != 0 {
		t.Errorf("failed task should have point 0, got %d", task.Point)
	}
	if task.RetryCount != 2 {
		t.Errorf("expected retry count 2, got %d", task.RetryCount)
	}
	if driver.loginCalls != 2 {
		t.Errorf("expected the full attempt budget, got %d logins", driver.loginCalls)
	}
	if driver.checkCalls != 0 {
		t.Errorf("check must not run without a successful login, got %d", driver.checkCalls)
	}

	records, err := h.failures.Records()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one failure record, got %d", len(records))
	}
	if records[0].CredentialSecret != testPair.SecretValue || records[0].Proxy != testPair.Proxy {
		t.Errorf("unexpected failure record: %+v", records[0])
	}
}

func TestProcessPair_LoginError_CountsAsAttempt(t *testing.T) {
	driver := &fakeDriver{
		name:     "svc",
		loginErr: errors.New("wrong password page"),
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	if task.State != domain.TaskStateFailed {
		t.Errorf("login errors spend attempts like explicit false, expected FAILED, got %s", task.State)
	}
	if driver.loginCalls != 2 {
		t.Errorf("expected 2 login attempts, got %d", driver.loginCalls)
	}
}

func TestProcessPair_CheckFalse(t *testing.T) {
	driver := &fakeDriver{
		name:        "svc",
		checkResult: session.CheckResult{OK: false},
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	if task.State != domain.TaskStateFailed {
		t.Errorf("expected FAILED, got %s", task.State)
	}
	if task.Point != 0 {
		t.Errorf("expected point 0, got %d", task.Point)
	}
	// An explicit check false is terminal on the first pass; the
	// remaining login budget is not spent.
	if driver.loginCalls != 1 || driver.checkCalls != 1 {
		t.Errorf("expected 1 login and 1 check, got %d/%d", driver.loginCalls, driver.checkCalls)
	}

	records, _ := h.failures.Records()
	if len(records) != 1 {
		t.Errorf("expected one failure record, got %d", len(records))
	}
}

func TestProcessPair_NonNumericPoint(t *testing.T) {
	driver := &fakeDriver{
		name:        "svc",
		checkResult: session.CheckResult{OK: true, Raw: "N/A"},
	}
	h := newHarness(t, driver)

	if err := h.orch.ProcessPair(context.Background(), testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := h.task(t)
	// Non-numeric check output coerces to 0 but the task still succeeds.
	if task.State != domain.TaskStateSuccess {
		t.Errorf("expected SUCCESS, got %s", task.State)
	}
	if task.Point != 0 {
		t.Errorf("expected point 0, got %d", task.Point)
	}
}

func TestProcessPair_TerminalSkip(t *testing.T) {
	driver := &fakeDriver{
		name:        "svc",
		checkResult: session.CheckResult{OK: true, Raw: "42"},
	}
	h := newHarness(t, driver)
	ctx := context.Background()

	// First run drives the task to SUCCESS.
	if err := h.orch.ProcessPair(ctx, testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := h.task(t)

	// Second run must skip the pair entirely.
	if err := h.orch.ProcessPair(ctx, testPair, "svc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := h.task(t)
	if driver.loginCalls != 1 || driver.checkCalls != 1 {
		t.Errorf("terminal task must not trigger login/check, got %d/%d",
			driver.loginCalls, driver.checkCalls)
	}
	if h.factory.newCalls != 1 {
		t.Errorf("terminal task must not open a session, got %d", h.factory.newCalls)
	}
	if after.State != before.State || after.Point != before.Point {
		t.Errorf("terminal task must not change: %+v vs %+v", before, after)
	}
}

func TestProcessPair_SessionFailure_StaysPending(t *testing.T) {
	driver := &fakeDriver{name: "svc"}
	h := newHarness(t, driver)
	h.factory.newErr = errors.New("browser did not start")

	err := h.orch.ProcessPair(context.Background(), testPair, "svc")
	if !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("expected ErrSessionFailed, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("session failure should be fatal")
	}

	task := h.task(t)
	if task.State != domain.TaskStatePending {
		t.Errorf("task should stay PENDING after an infrastructure failure, got %s", task.State)
	}
	if driver.loginCalls != 0 {
		t.Errorf("login must not run without a session, got %d", driver.loginCalls)
	}

	records, _ := h.failures.Records()
	if len(records) != 0 {
		t.Errorf("infrastructure failures must not produce failure records, got %d", len(records))
	}
}

func TestProcessPair_CheckCrash_StaysPending(t *testing.T) {
	driver := &fakeDriver{
		name:     "svc",
		checkErr: errors.New("page went away"),
	}
	h := newHarness(t, driver)

	err := h.orch.ProcessPair(context.Background(), testPair, "svc")
	if !errors.Is(err, ErrCheckCrashed) {
		t.Fatalf("expected ErrCheckCrashed, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("check crash should be fatal")
	}

	task := h.task(t)
	if task.State != domain.TaskStatePending {
		t.Errorf("task should stay PENDING after a check crash, got %s", task.State)
	}
	// The crash aborts the attempt loop: no second login.
	if driver.loginCalls != 1 {
		t.Errorf("expected 1 login before the crash, got %d", driver.loginCalls)
	}
}

func TestProcessPair_UnknownService(t *testing.T) {
	h := newHarness(t, &fakeDriver{name: "svc"})

	err := h.orch.ProcessPair(context.Background(), testPair, "unknown")
	if !errors.Is(err, session.ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	orch := New(Config{})

	if orch.maxLoginRetries != defaultMaxLoginRetries {
		t.Errorf("expected default retries %d, got %d", defaultMaxLoginRetries, orch.maxLoginRetries)
	}
	if orch.profileRoot != defaultProfileRoot {
		t.Errorf("expected default profile root %q, got %q", defaultProfileRoot, orch.profileRoot)
	}
	if orch.logger == nil {
		t.Error("logger should be set")
	}
}

func TestProfileDir_Isolation(t *testing.T) {
	orch := New(Config{ProfileRoot: "profiles"})

	a := orch.profileDir(domain.Pair{CredentialID: 1, Proxy: "http://p1:8080"}, "svc")
	b := orch.profileDir(domain.Pair{CredentialID: 1, Proxy: "http://p2:8080"}, "svc")
	c := orch.profileDir(domain.Pair{CredentialID: 2, Proxy: "http://p1:8080"}, "svc")

	if a == b || a == c || b == c {
		t.Errorf("profile dirs must be unique per (credential, proxy): %q %q %q", a, b, c)
	}
}
