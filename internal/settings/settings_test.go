package settings

import "testing"

func TestAllowlist(t *testing.T) {
	s := Settings{TagAllowlist: "#todo, idea  #read-later"}
	got := s.Allowlist()
	for _, want := range []string{"#todo", "#idea", "#read-later"} {
		if _, ok := got[want]; !ok {
			t.Errorf("allowlist missing %q: %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestAllowlist_EmptyMeansAll(t *testing.T) {
	if got := (Settings{TagAllowlist: " , "}).Allowlist(); got != nil {
		t.Errorf("expected nil allowlist, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
	s.RecentCap = -1
	if err := s.Validate(); err == nil {
		t.Error("negative recent_cap should fail")
	}
	s = Default()
	s.URLFields = []string{"source", ""}
	if err := s.Validate(); err == nil {
		t.Error("blank url field name should fail")
	}
}

func TestHolder_Swap(t *testing.T) {
	h := NewHolder(Default())
	if !h.Current().TLDSearch {
		t.Fatal("expected TLD search enabled by default")
	}
	next := Default()
	next.TLDSearch = false
	h.Set(next)
	if h.Current().TLDSearch {
		t.Error("Set did not take effect")
	}
}

func TestHolder_ZeroValue(t *testing.T) {
	var h Holder
	if got := h.Current().RecentCap; got != DefaultRecentCap {
		t.Errorf("zero holder recent cap = %d, want %d", got, DefaultRecentCap)
	}
}
