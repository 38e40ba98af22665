package experience

import (
	"encoding/json"
	"testing"
)

func TestResponseSetLastWriteWins(t *testing.T) {
	r := ResponseSet{}
	r = r.Set("s1", json.RawMessage(`"red"`))
	r = r.Set("s1", json.RawMessage(`"blue"`))

	v, ok := r.Get("s1")
	if !ok {
		t.Fatal("expected a value for s1")
	}
	if string(v) != `"blue"` {
		t.Errorf("expected most recent value, got %s", v)
	}
}

func TestResponseSetNullClearsButKeepsKey(t *testing.T) {
	r := ResponseSet{}.Set("s1", json.RawMessage(`"red"`))
	r = r.Set("s1", nil)

	v, ok := r.Get("s1")
	if !ok {
		t.Fatal("cleared answer should still be present")
	}
	if string(v) != "null" {
		t.Errorf("expected explicit null, got %s", v)
	}
	if !r.Cleared("s1") {
		t.Error("expected s1 to report cleared")
	}

	// Never-answered is distinct: key absent.
	if _, ok := r.Get("s2"); ok {
		t.Error("s2 was never answered, expected no value")
	}
	if r.Cleared("s2") {
		t.Error("absent key is not cleared")
	}
}

func TestResponseSetCopyOnWrite(t *testing.T) {
	orig := ResponseSet{}.Set("s1", json.RawMessage(`"red"`))
	next := orig.Set("s2", json.RawMessage(`true`))

	if _, ok := orig.Get("s2"); ok {
		t.Error("Set mutated the original set")
	}
	if _, ok := next.Get("s1"); !ok {
		t.Error("new set lost the earlier response")
	}
}

func TestOutputSet(t *testing.T) {
	o := OutputSet{}.Set("cap", "media/abc.jpg")
	o = o.Set("cap", "media/def.jpg")
	if o["cap"] != "media/def.jpg" {
		t.Errorf("expected last write to win, got %q", o["cap"])
	}
}
