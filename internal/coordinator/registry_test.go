package coordinator

import (
	"testing"

	"github.com/domuslab/domus-core/internal/protocol"
)

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	oven := protocol.DeviceSender("ov1", "kitchen", "oven", 2000)

	if !r.Add(light) {
		t.Error("first Add should report a new entry")
	}
	if !r.Add(oven) {
		t.Error("first Add should report a new entry")
	}
	if r.Add(light) {
		t.Error("repeated Add should report an existing entry")
	}
	if got := r.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}

	if !r.Contains("l1") || !r.Contains("ov1") {
		t.Error("registered ids should be present")
	}
	if r.Contains("ghost") {
		t.Error("unknown id should be absent")
	}

	if !r.Remove("l1") {
		t.Error("Remove of a present id should report true")
	}
	if r.Remove("l1") {
		t.Error("Remove of an absent id should report false")
	}
	if got := r.Size(); got != 1 {
		t.Fatalf("Size() after remove = %d, want 1", got)
	}
}

func TestRegistryAddRefreshesDescriptor(t *testing.T) {
	r := NewRegistry()

	r.Add(protocol.DeviceSender("d1", "kitchen", "light", 10))
	r.Add(protocol.DeviceSender("d1", "bedroom", "light", 10))

	got, ok := r.Get("d1")
	if !ok {
		t.Fatal("d1 should be present")
	}
	if got.Room != "bedroom" {
		t.Errorf("re-registration kept room %q, want bedroom", got.Room)
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Add(protocol.DeviceSender("c", "home", "light", 10))
	r.Add(protocol.DeviceSender("a", "home", "tv", 100))
	r.Add(protocol.DeviceSender("b", "home", "oven", 2000))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].ID != want {
			t.Errorf("List()[%d].ID = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestRegistryTotalConsumption(t *testing.T) {
	r := NewRegistry()

	if got := r.TotalConsumption(); got != 0 {
		t.Errorf("empty registry consumption = %d, want 0", got)
	}

	r.Add(protocol.DeviceSender("l1", "home", "light", 10))
	r.Add(protocol.DeviceSender("ov1", "home", "oven", 2000))
	r.Add(protocol.DeviceSender("th1", "home", "thermometer", 0))

	if got := r.TotalConsumption(); got != 2010 {
		t.Errorf("TotalConsumption() = %d, want 2010", got)
	}
}
