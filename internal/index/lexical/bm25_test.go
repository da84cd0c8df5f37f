package lexical

import (
	"reflect"
	"testing"
)

func testIndex() *Index {
	return New([][]string{
		Tokenize("how to reset password"),
		Tokenize("how to change email"),
		Tokenize("how to delete account"),
	})
}

func TestScores_MatchingTermsScoreHighest(t *testing.T) {
	ix := testIndex()

	scores := ix.Scores(Tokenize("reset my password"))
	if len(scores) != 3 {
		t.Fatalf("expected dense array of 3 scores, got %d", len(scores))
	}
	if scores[0] <= scores[1] || scores[0] <= scores[2] {
		t.Errorf("document 0 should dominate: %v", scores)
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("non-matching documents should score zero: %v", scores)
	}
}

func TestScores_EmptyQuery(t *testing.T) {
	ix := testIndex()

	scores := ix.Scores(nil)
	if !reflect.DeepEqual(scores, []float64{0, 0, 0}) {
		t.Errorf("expected all-zero scores, got %v", scores)
	}
}

func TestScores_UnknownTerms(t *testing.T) {
	ix := testIndex()

	scores := ix.Scores(Tokenize("quantum flux capacitor"))
	for i, s := range scores {
		if s != 0 {
			t.Errorf("document %d scored %v for unknown terms", i, s)
		}
	}
}

func TestScores_CommonTermScoresEverywhere(t *testing.T) {
	ix := testIndex()

	scores := ix.Scores([]string{"how"})
	for i, s := range scores {
		if s <= 0 {
			t.Errorf("document %d should match 'how', got %v", i, s)
		}
	}
}

func TestScores_RareTermOutweighsCommonTerm(t *testing.T) {
	ix := testIndex()

	// "password" appears in one document, "how" in all three.
	rare := ix.Scores([]string{"password"})
	common := ix.Scores([]string{"how"})
	if rare[0] <= common[0] {
		t.Errorf("rare term idf should dominate: password=%v how=%v", rare[0], common[0])
	}
}

func TestScores_Deterministic(t *testing.T) {
	ix := testIndex()

	q := Tokenize("how to reset password")
	first := ix.Scores(q)
	second := ix.Scores(q)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("scores differ across calls: %v vs %v", first, second)
	}
}

func TestScores_EmptyCorpus(t *testing.T) {
	ix := New(nil)

	if got := ix.Scores(Tokenize("anything")); len(got) != 0 {
		t.Errorf("expected empty score array, got %v", got)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  Reset MY  Password\t")
	want := []string{"reset", "my", "password"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize: got %v, want %v", got, want)
	}
}
