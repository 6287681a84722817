package domain

import "testing"

func TestTaskState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
	}{
		{TaskStatePending, false},
		{TaskStateSuccess, true},
		{TaskStateFailed, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestParseTaskState(t *testing.T) {
	if ParseTaskState("SUCCESS") != TaskStateSuccess {
		t.Error("SUCCESS should parse to TaskStateSuccess")
	}
	if ParseTaskState("FAILED") != TaskStateFailed {
		t.Error("FAILED should parse to TaskStateFailed")
	}
	if ParseTaskState("PENDING") != TaskStatePending {
		t.Error("PENDING should parse to TaskStatePending")
	}

	// Unknown values fall back to PENDING
	if ParseTaskState("garbage") != TaskStatePending {
		t.Error("unknown state should parse to TaskStatePending")
	}
}

func TestTask_MarkSuccess(t *testing.T) {
	task := &Task{State: TaskStatePending}
	task.MarkSuccess(37)

	if task.State != TaskStateSuccess {
		t.Errorf("expected SUCCESS, got %s", task.State)
	}
	if task.Point != 37 {
		t.Errorf("expected point 37, got %d", task.Point)
	}
	if task.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set")
	}
	if !task.IsFinished() {
		t.Error("task should be finished")
	}
}

func TestTask_MarkFailed(t *testing.T) {
	task := &Task{State: TaskStatePending, Point: 99}
	task.MarkFailed()

	if task.State != TaskStateFailed {
		t.Errorf("expected FAILED, got %s", task.State)
	}
	// Point is reset on failure
	if task.Point != 0 {
		t.Errorf("expected point 0, got %d", task.Point)
	}
	if !task.IsFinished() {
		t.Error("task should be finished")
	}
}

func TestProbeResult_HasFailures(t *testing.T) {
	ok := ProbeResult{Proxy: "http://p1:8080", Success: []string{"svc"}, Fail: []string{}}
	if ok.HasFailures() {
		t.Error("result without fail tags should not report failures")
	}

	bad := ProbeResult{Proxy: "http://p2:8080", Success: []string{}, Fail: []string{"svc"}}
	if !bad.HasFailures() {
		t.Error("result with fail tags should report failures")
	}
}
