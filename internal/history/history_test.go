package history

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/yegors/wmo-decoder/internal/wxcode"
)

func record(code string) *wxcode.Record {
	return &wxcode.Record{
		Code:        code,
		NumericCode: wxcode.NotApplicable,
		Name:        "name " + code,
		SourceURLs:  []string{"https://example.com/" + code},
	}
}

func TestAddKeepsNewestFirstAndCaps(t *testing.T) {
	k := NewKeeper(DefaultCapacity)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 6; i++ {
		k.Add(record(fmt.Sprintf("C%d", i)), base.Add(time.Duration(i)*time.Minute))
	}

	entries := k.List()
	if len(entries) != 5 {
		t.Fatalf("len(List()) = %d, want 5", len(entries))
	}
	if entries[0].Code != "C6" {
		t.Errorf("entries[0].Code = %q, want C6", entries[0].Code)
	}
	for _, e := range entries {
		if e.Code == "C1" {
			t.Errorf("oldest entry C1 still present")
		}
	}
	want := []string{"C6", "C5", "C4", "C3", "C2"}
	for i, e := range entries {
		if e.Code != want[i] {
			t.Errorf("entries[%d].Code = %q, want %q", i, e.Code, want[i])
		}
	}
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	k := NewKeeper(3)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		e := k.Add(record("FG"), time.Now())
		if e.ID == "" {
			t.Fatal("empty id")
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestGetReturnsStoredRecord(t *testing.T) {
	k := NewKeeper(0)
	if k.Capacity() != DefaultCapacity {
		t.Fatalf("Capacity() = %d, want %d", k.Capacity(), DefaultCapacity)
	}

	orig := record("+TSRA")
	added := k.Add(orig, time.Now())

	got, ok := k.Get(added.ID)
	if !ok {
		t.Fatalf("Get(%q) not found", added.ID)
	}
	if !reflect.DeepEqual(got.Record, *orig) {
		t.Fatalf("Get() record = %+v, want %+v", got.Record, *orig)
	}

	if _, ok := k.Get("missing"); ok {
		t.Fatal("Get(missing) reported found")
	}
}

func TestListReturnsCopies(t *testing.T) {
	k := NewKeeper(2)
	k.Add(record("BR"), time.Now())

	list := k.List()
	list[0].Code = "mutated"
	list[0].SourceURLs[0] = "mutated"

	again := k.List()
	if again[0].Code != "BR" || again[0].SourceURLs[0] != "https://example.com/BR" {
		t.Fatalf("history mutated through List(): %+v", again[0])
	}
}
