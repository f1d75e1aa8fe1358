package battery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/robots/mock"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		percent  uint8
		expected Tier
	}{
		{100, Full},
		{86, Full},
		{85, ThreeQuarters}, // thresholds are exclusive
		{66, ThreeQuarters},
		{65, Half},
		{41, Half},
		{40, Quarter},
		{21, Quarter},
		{20, Empty},
		{0, Empty},
	}

	for _, tt := range tests {
		got := TierFor(tt.percent)
		if got != tt.expected {
			t.Errorf("TierFor(%d) = %s, want %s", tt.percent, got, tt.expected)
		}
	}
}

func TestTierFor_AllPercentages(t *testing.T) {
	for p := 0; p <= 100; p++ {
		got := TierFor(uint8(p))
		var want Tier
		switch {
		case p > 85:
			want = Full
		case p > 65 && p <= 85:
			want = ThreeQuarters
		case p > 40 && p <= 65:
			want = Half
		case p > 20 && p <= 40:
			want = Quarter
		default:
			want = Empty
		}
		if got != want {
			t.Errorf("TierFor(%d) = %s, want %s", p, got, want)
		}
	}
}

func TestReading(t *testing.T) {
	r := NewReading(72)
	if r.Label() != "72%" {
		t.Errorf("Label() = %q, want %q", r.Label(), "72%")
	}
	if r.Tier.Icon() != "fa-battery-three-quarters" {
		t.Errorf("Icon() = %q", r.Tier.Icon())
	}
	if NewReading(10).Tier.Icon() != "fa-battery-empty" {
		t.Errorf("Icon() for 10%% = %q", NewReading(10).Tier.Icon())
	}
}

func TestMonitor_SkipsErrors(t *testing.T) {
	updates := make(chan purpleeye.BatteryUpdate, 3)
	updates <- purpleeye.BatteryUpdate{Error: errors.New("boom")}
	updates <- purpleeye.BatteryUpdate{Percent: 55}
	close(updates)

	var rendered []Reading
	m := NewMonitor(RendererFunc(func(r Reading) { rendered = append(rendered, r) }))
	if err := m.Run(context.Background(), updates); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rendered) != 1 || rendered[0].Percent != 55 || rendered[0].Tier != Half {
		t.Errorf("rendered = %+v, want one 55%% half reading", rendered)
	}
}

func TestMonitor_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMonitor(RendererFunc(func(Reading) {}))
	if err := m.Run(ctx, make(chan purpleeye.BatteryUpdate)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if _, ok := m.Last(); ok {
		t.Error("Last() should report no reading")
	}
}

// TestMonitor_EndToEnd connects a mock robot reading 72%, then delivers a 15%
// notification.
func TestMonitor_EndToEnd(t *testing.T) {
	robot := mock.NewMockRobot("MOCK-e2e", 72)
	updates, err := robot.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	rendered := make(chan Reading, 4)
	m := NewMonitor(RendererFunc(func(r Reading) { rendered <- r }))

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), updates) }()

	expect := func(label string, tier Tier) {
		t.Helper()
		select {
		case r := <-rendered:
			if r.Label() != label || r.Tier != tier {
				t.Errorf("rendered %s/%s, want %s/%s", r.Label(), r.Tier, label, tier)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", label)
		}
	}

	expect("72%", ThreeQuarters)
	robot.SetBatteryLevel(15)
	expect("15%", Empty)

	if last, ok := m.Last(); !ok || last.Percent != 15 {
		t.Errorf("Last() = %+v, %v, want 15%%", last, ok)
	}

	if err := robot.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil after disconnect", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after disconnect")
	}
}
