package tray

import "testing"

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("expected tracking enabled by default")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected tracking enabled after two toggles")
	}
}

func TestTray_ViewerCallback(t *testing.T) {
	tr := New()
	tr.handleViewer()

	called := false
	tr.OnViewer(func() { called = true })
	tr.handleViewer()
	if !called {
		t.Error("expected viewer callback")
	}
}

func TestTray_Status(t *testing.T) {
	tr := New()
	if tr.IsReady() {
		t.Error("expected not ready by default")
	}
	tr.SetReady(true)
	if !tr.IsReady() {
		t.Error("expected ready after SetReady")
	}

	tests := []struct {
		ready bool
		clip  string
		want  string
	}{
		{false, "", "Status: waiting for avatar"},
		{true, "", "Status: avatar live"},
		{true, "wave", "Playing: wave"},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.ready, tt.clip); got != tt.want {
			t.Errorf("statusTitle(%v, %q) = %q, want %q", tt.ready, tt.clip, got, tt.want)
		}
	}
}
