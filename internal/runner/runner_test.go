package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Patrol/internal/assign"
	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/orchestrator"
	"github.com/shaiso/Patrol/internal/prober"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/scheduler"
	"github.com/shaiso/Patrol/internal/session"
)

type stubSession struct {
	dir string
}

func (s *stubSession) ProfileDir() string { return s.dir }

type stubFactory struct{}

func (f *stubFactory) New(ctx context.Context, profileDir, proxy string) (session.Session, error) {
	return &stubSession{dir: profileDir}, nil
}

func (f *stubFactory) Reset(ctx context.Context, sess session.Session) error { return nil }

func (f *stubFactory) Close(sess session.Session) error { return nil }

type stubDriver struct {
	name string
	raw  string
}

func (d *stubDriver) Service() string { return d.name }

func (d *stubDriver) Login(ctx context.Context, sess session.Session, secret, proxy string) (bool, error) {
	return true, nil
}

func (d *stubDriver) Check(ctx context.Context, sess session.Session, secret, proxy string) (session.CheckResult, error) {
	return session.CheckResult{OK: true, Raw: d.raw}, nil
}

func TestRunner_Run_FullBatch(t *testing.T) {
	// Stands in for a working HTTP proxy: probes expect a 200.
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer proxySrv.Close()

	dir := t.TempDir()
	db, err := repo.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	taskRepo := repo.NewTaskRepo(db)
	credRepo := repo.NewCredentialRepo(db)
	probeRepo := repo.NewProbeRepo(db)

	registry := session.NewRegistry()
	registry.Register(&stubDriver{name: "svc", raw: "37"})

	orch := orchestrator.New(orchestrator.Config{
		TaskRepo:    taskRepo,
		Registry:    registry,
		Factory:     &stubFactory{},
		Failures:    orchestrator.NewFailureLog(filepath.Join(dir, "failures.json")),
		ProfileRoot: filepath.Join(dir, "profiles"),
	})

	r := New(Config{
		ProbeRepo: probeRepo,
		CredRepo:  credRepo,
		Pool: prober.New(prober.Config{
			TargetURL:  "http://example.com/",
			ServiceTag: "svc",
			Timeout:    2 * time.Second,
		}),
		Assigner: assign.New(assign.Config{CredRepo: credRepo}),
		Orch:     orch,
		Stagger:  scheduler.NewStagger(scheduler.StaggerConfig{Delay: time.Millisecond}),
		Services: []string{"svc"},
	})

	summary, err := r.Run(context.Background(),
		[]string{proxySrv.URL, "bad proxy"},
		[]string{"secret-1", "secret-2"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.RunID == "" {
		t.Error("summary should carry a run id")
	}
	if summary.ProxiesProbed != 2 {
		t.Errorf("expected 2 probed proxies, got %d", summary.ProxiesProbed)
	}
	// Two proxies, two credentials, one proxy each: two pairs, one
	// service, so two units.
	if summary.Pairs != 2 {
		t.Errorf("expected 2 pairs, got %d", summary.Pairs)
	}
	if summary.Units != 2 {
		t.Errorf("expected 2 units, got %d", summary.Units)
	}
	if summary.FailedUnits != 0 {
		t.Errorf("expected 0 failed units, got %d", summary.FailedUnits)
	}

	// Probe results were persisted.
	probed, err := probeRepo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(probed) != 2 {
		t.Errorf("expected 2 stored probe results, got %d", len(probed))
	}

	// Every pair finished SUCCESS with the coerced point.
	counts, err := taskRepo.CountByState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[domain.TaskStateSuccess] != 2 {
		t.Errorf("expected 2 SUCCESS tasks, got %d", counts[domain.TaskStateSuccess])
	}
}

func TestRunner_Run_StoreErrorStillCompletes(t *testing.T) {
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer proxySrv.Close()

	dir := t.TempDir()
	db, err := repo.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	// Break the assignments table mid-run: both the assignment writes
	// and the pair listing will now fail against the store.
	if _, err := db.Exec(`DROP TABLE assignments`); err != nil {
		t.Fatal(err)
	}

	registry := session.NewRegistry()
	registry.Register(&stubDriver{name: "svc", raw: "1"})

	credRepo := repo.NewCredentialRepo(db)
	r := New(Config{
		ProbeRepo: repo.NewProbeRepo(db),
		CredRepo:  credRepo,
		Pool: prober.New(prober.Config{
			TargetURL:  "http://example.com/",
			ServiceTag: "svc",
			Timeout:    2 * time.Second,
		}),
		Assigner: assign.New(assign.Config{CredRepo: credRepo}),
		Orch: orchestrator.New(orchestrator.Config{
			TaskRepo:    repo.NewTaskRepo(db),
			Registry:    registry,
			Factory:     &stubFactory{},
			ProfileRoot: filepath.Join(dir, "profiles"),
		}),
		Stagger:  scheduler.NewStagger(scheduler.StaggerConfig{Delay: time.Millisecond}),
		Services: []string{"svc"},
	})

	// Mid-run store errors are logged, not fatal: the run still
	// reaches its summary.
	summary, err := r.Run(context.Background(),
		[]string{proxySrv.URL},
		[]string{"secret-1"},
	)
	if err != nil {
		t.Fatalf("run should complete despite store errors, got %v", err)
	}

	if summary.RunID == "" {
		t.Error("summary should carry a run id")
	}
	if summary.ProxiesProbed != 1 {
		t.Errorf("expected 1 probed proxy, got %d", summary.ProxiesProbed)
	}
	if summary.Pairs != 0 || summary.Units != 0 {
		t.Errorf("unreadable bindings should yield an empty batch: pairs=%d units=%d",
			summary.Pairs, summary.Units)
	}
}

func TestRunner_Run_NoInputs_ReplaysBindings(t *testing.T) {
	dir := t.TempDir()
	db, err := repo.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	credRepo := repo.NewCredentialRepo(db)

	// Pre-existing binding from an earlier run.
	credID, err := credRepo.EnsureCredential(context.Background(), "secret-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := credRepo.EnsureAssignment(context.Background(), credID, "http://proxy:8080"); err != nil {
		t.Fatal(err)
	}

	registry := session.NewRegistry()
	registry.Register(&stubDriver{name: "svc", raw: "1"})

	r := New(Config{
		ProbeRepo: repo.NewProbeRepo(db),
		CredRepo:  credRepo,
		Pool: prober.New(prober.Config{
			TargetURL:  "http://example.com/",
			ServiceTag: "svc",
		}),
		Assigner: assign.New(assign.Config{CredRepo: credRepo}),
		Orch: orchestrator.New(orchestrator.Config{
			TaskRepo:    repo.NewTaskRepo(db),
			Registry:    registry,
			Factory:     &stubFactory{},
			ProfileRoot: filepath.Join(dir, "profiles"),
		}),
		Stagger:  scheduler.NewStagger(scheduler.StaggerConfig{Delay: time.Millisecond}),
		Services: []string{"svc"},
	})

	// No proxies, no secrets: validation and assignment are skipped.
	summary, err := r.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ProxiesProbed != 0 {
		t.Errorf("expected 0 probed proxies, got %d", summary.ProxiesProbed)
	}
	if summary.Pairs != 1 || summary.Units != 1 {
		t.Errorf("existing binding should be processed: pairs=%d units=%d",
			summary.Pairs, summary.Units)
	}
}
