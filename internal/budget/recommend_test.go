package budget

import (
	"strings"
	"testing"
)

func newTestScheduler(t *testing.T, opts Options) (*Scheduler, *FakeClock) {
	t.Helper()
	clock := testClock()
	s, err := New(opts, WithClock(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, clock
}

func TestRecommendations_KeywordOverlap(t *testing.T) {
	s, _ := newTestScheduler(t, Options{MaxWeight: 1000})

	layers := []Layer{
		{ID: "git", Weight: 10, Priority: 3, Keywords: []string{"commit", "branch", "merge"}},
		{ID: "docker", Weight: 10, Priority: 5, Keywords: []string{"container", "image"}},
		{ID: "sql", Weight: 10, Priority: 2, Description: "query relational databases"},
	}
	for _, l := range layers {
		if err := s.DefineLayer(l); err != nil {
			t.Fatalf("DefineLayer(%s): %v", l.ID, err)
		}
	}

	recs := s.Recommendations("please commit the branch and run the query", 0)
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2: %v", len(recs), recs)
	}
	// git matches two terms, sql matches one.
	if recs[0].LayerID != "git" || recs[1].LayerID != "sql" {
		t.Errorf("order = [%s, %s], want [git, sql]", recs[0].LayerID, recs[1].LayerID)
	}
	if recs[0].Score <= recs[1].Score {
		t.Errorf("git score %d not above sql score %d", recs[0].Score, recs[1].Score)
	}
	if !strings.Contains(recs[0].Reason, "commit") {
		t.Errorf("reason %q does not name the matched term", recs[0].Reason)
	}
}

func TestRecommendations_SkipsActiveLayers(t *testing.T) {
	s, _ := newTestScheduler(t, Options{MaxWeight: 1000})
	if err := s.DefineLayer(Layer{ID: "git", Weight: 10, Keywords: []string{"commit"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ActivateLayers(ActivationRequest{LayerIDs: []string{"git"}}); err != nil {
		t.Fatal(err)
	}

	recs := s.Recommendations("commit this", 0)
	if len(recs) != 0 {
		t.Errorf("active layer recommended: %v", recs)
	}
}

func TestRecommendations_PriorityBreaksKeywordTies(t *testing.T) {
	s, _ := newTestScheduler(t, Options{MaxWeight: 1000})
	for _, l := range []Layer{
		{ID: "low", Weight: 10, Priority: 1, Keywords: []string{"deploy"}},
		{ID: "high", Weight: 10, Priority: 8, Keywords: []string{"deploy"}},
	} {
		if err := s.DefineLayer(l); err != nil {
			t.Fatal(err)
		}
	}

	recs := s.Recommendations("deploy the service", 0)
	if len(recs) != 2 || recs[0].LayerID != "high" {
		t.Errorf("recommendations = %v, want high first", recs)
	}
}

func TestRecommendations_Limit(t *testing.T) {
	s, _ := newTestScheduler(t, Options{MaxWeight: 1000})
	for _, id := range []string{"a", "b", "c"} {
		if err := s.DefineLayer(Layer{ID: id, Weight: 10, Keywords: []string{"shared"}}); err != nil {
			t.Fatal(err)
		}
	}

	recs := s.Recommendations("shared context", 2)
	if len(recs) != 2 {
		t.Errorf("got %d recommendations, want 2", len(recs))
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Fix the DB, fix the db fast!")
	want := map[string]bool{"fix": true, "the": true, "db": true, "fast": true}
	if len(got) != len(want) {
		t.Fatalf("tokenize returned %v, want the %d distinct words", got, len(want))
	}
	for _, w := range got {
		if !want[w] {
			t.Errorf("unexpected token %q", w)
		}
	}
}
