package bsbi

import "testing"

func TestIDMap_AssignsDenseIDsInFirstSeenOrder(t *testing.T) {
	m := NewIDMap()
	if id := m.ID("cat"); id != 0 {
		t.Errorf("first id = %d, want 0", id)
	}
	if id := m.ID("dog"); id != 1 {
		t.Errorf("second id = %d, want 1", id)
	}
	if id := m.ID("cat"); id != 0 {
		t.Errorf("re-seeing cat = %d, want 0 (no reassignment)", id)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestIDMap_RoundTrip(t *testing.T) {
	m := NewIDMap()
	words := []string{"cat", "sat", "mat", "dog", "cat"}
	for _, w := range words {
		id := m.ID(w)
		got, ok := m.String(id)
		if !ok || got != w {
			t.Errorf("String(ID(%q)) = %q, %v, want %q, true", w, got, ok, w)
		}
	}
	for i := 0; i < m.Len(); i++ {
		s, ok := m.String(i)
		if !ok {
			t.Fatalf("String(%d) not ok within [0, Len())", i)
		}
		gotID, ok := m.TryID(s)
		if !ok || gotID != i {
			t.Errorf("TryID(%q) = %d, %v, want %d, true", s, gotID, ok, i)
		}
	}
}

func TestIDMap_TryIDDoesNotAssign(t *testing.T) {
	m := NewIDMap()
	m.ID("cat")
	if _, ok := m.TryID("dog"); ok {
		t.Error("TryID(dog) should report false before dog is ever assigned")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (TryID must not assign)", m.Len())
	}
}

func TestIDMap_StringOutOfRange(t *testing.T) {
	m := NewIDMap()
	m.ID("cat")
	if _, ok := m.String(-1); ok {
		t.Error("String(-1) should report false")
	}
	if _, ok := m.String(1); ok {
		t.Error("String(1) should report false when only id 0 exists")
	}
}

func TestIDMap_InstancesDoNotShareStorage(t *testing.T) {
	a := NewIDMap()
	b := NewIDMap()
	a.ID("cat")
	if b.Len() != 0 {
		t.Fatalf("second IDMap saw %d entries from the first; storage must not be shared", b.Len())
	}
	b.ID("dog")
	if _, ok := a.TryID("dog"); ok {
		t.Fatal("first IDMap saw an id assigned only in the second instance")
	}
}

func TestIDMap_SerializationRoundTrip(t *testing.T) {
	m := NewIDMap()
	for _, w := range []string{"cat", "sat", "mat", "dog"} {
		m.ID(w)
	}

	decoded, err := DecodeIDMap(m.EncodeIDToStr(), m.EncodeStrToID())
	if err != nil {
		t.Fatalf("DecodeIDMap() error = %v", err)
	}
	if decoded.Len() != m.Len() {
		t.Fatalf("decoded.Len() = %d, want %d", decoded.Len(), m.Len())
	}
	for i := 0; i < m.Len(); i++ {
		want, _ := m.String(i)
		got, ok := decoded.String(i)
		if !ok || got != want {
			t.Errorf("decoded.String(%d) = %q, %v, want %q, true", i, got, ok, want)
		}
	}
}

func TestDecodeIDMap_MismatchedHalvesFail(t *testing.T) {
	a := NewIDMap()
	a.ID("cat")
	b := NewIDMap()
	b.ID("dog")
	b.ID("mouse")

	if _, err := DecodeIDMap(a.EncodeIDToStr(), b.EncodeStrToID()); err == nil {
		t.Fatal("expected error decoding mismatched str_to_id/id_to_str halves")
	}
}

func TestDecodeIDMap_BadMagicFails(t *testing.T) {
	if _, err := decodeIDToStr([]byte("nope")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
