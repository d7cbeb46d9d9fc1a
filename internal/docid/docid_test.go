package docid

import "testing"

func TestFromPath_Deterministic(t *testing.T) {
	a := FromPath("/docs/ws/a.txt")
	b := FromPath("/docs/ws/a.txt")
	if a != b {
		t.Errorf("%s != %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("len = %d, want 40 hex chars", len(a))
	}
}

func TestFromPath_CleansPath(t *testing.T) {
	if FromPath("/docs/ws/../ws/a.txt") != FromPath("/docs/ws/a.txt") {
		t.Error("equivalent paths should share an ID")
	}
}

func TestFromPath_DistinctPaths(t *testing.T) {
	if FromPath("/docs/ws/a.txt") == FromPath("/docs/ws/b.txt") {
		t.Error("distinct paths collided")
	}
}
