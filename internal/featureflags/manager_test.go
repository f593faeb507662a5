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
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", 1) {
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
		t.Fatal("percentage rollout requires a signed-in user")
	}
}

func TestDefaults(t *testing.T) {
	m := NewManager("")

	if !m.Enabled(PayPalCheckout, 0) {
		t.Fatal("checkout should default on")
	}
	if !m.Enabled(GiftMessages, 7) || !m.Enabled(TopCategories, 7) {
		t.Fatal("platform flags should default on")
	}

	// Config overrides a default
	m = NewManager("paypal_checkout=off")
	if m.Enabled(PayPalCheckout, 7) {
		t.Fatal("config should override the checkout default")
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}
	if len(raw) != 3+len(defaults) {
		t.Fatalf("expected parsed flags plus defaults, got %d", len(raw))
	}

	snap := m.Snapshot(123)
	if len(snap) != len(raw) {
		t.Fatalf("snapshot size %d does not match raw size %d", len(snap), len(raw))
	}
}
