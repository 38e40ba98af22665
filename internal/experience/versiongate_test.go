package experience

import "testing"

func i64(v int64) *int64 { return &v }

func TestHasUnpublishedChanges(t *testing.T) {
	cases := []struct {
		draft     int64
		published *int64
		want      bool
	}{
		{1, nil, true},  // never published
		{5, i64(3), true},
		{3, i64(3), false},
		{2, i64(5), false},
		{0, i64(1), false},
	}
	for _, c := range cases {
		if got := HasUnpublishedChanges(c.draft, c.published); got != c.want {
			t.Errorf("HasUnpublishedChanges(%d, %v) = %v, want %v", c.draft, c.published, got, c.want)
		}
	}
}
