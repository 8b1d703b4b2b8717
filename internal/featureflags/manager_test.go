package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if !m.Enabled("A", 0) {
		t.Fatal("switches apply to anonymous callers and ignore case")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=150%")

	if !m.Enabled("always", 1) || !m.Enabled("over", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}
}

func TestEnabled_RolloutShare(t *testing.T) {
	m := NewManager(PersonalizedRecs + "=25%")

	enabled := 0
	for id := uint(1); id <= 2000; id++ {
		if m.Enabled(PersonalizedRecs, id) {
			enabled++
		}
	}
	if enabled < 350 || enabled > 650 {
		t.Fatalf("expected roughly a quarter of users enabled, got %d/2000", enabled)
	}
}

func TestParse_SkipsMalformedEntries(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=maybe,v=abc% ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}
	if m.Enabled("w", 1) || m.Enabled("v", 1) {
		t.Fatal("malformed values must leave the flag undefined")
	}
}

func TestReload(t *testing.T) {
	m := NewManager(PersonalizedRecs + "=on")
	if !m.Enabled(PersonalizedRecs, 7) {
		t.Fatal("expected flag on before reload")
	}

	m.Reload(PersonalizedRecs + "=off")
	if m.Enabled(PersonalizedRecs, 7) {
		t.Fatal("expected flag off after reload")
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(PersonalizedRecs, 1) {
		t.Fatal("nil manager must report disabled")
	}
}
