package picks

import (
	"encoding/json"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNormalizeClearsRoundForDecision(t *testing.T) {
	p := Pick{Method: "DEC", Round: intPtr(3)}
	if got := p.Normalize("DEC"); got.Round != nil {
		t.Fatalf("expected round cleared for decision, got %v", *got.Round)
	}

	ko := Pick{Method: "KO", Round: intPtr(2)}
	if got := ko.Normalize("DEC"); got.RoundValue() != 2 {
		t.Fatalf("expected round kept for KO, got %d", got.RoundValue())
	}
}

func TestPatchApply(t *testing.T) {
	blue := WinnerBlue
	ko := Method("KO")
	base := Pick{Winner: WinnerRed, Method: "DEC"}

	got := Patch{Winner: &blue, Method: &ko, Round: intPtr(2)}.Apply(base)
	if got.Winner != WinnerBlue || got.Method != "KO" || got.RoundValue() != 2 {
		t.Fatalf("unexpected merged pick %+v", got)
	}

	cleared := Patch{ClearRound: true, Round: intPtr(4)}.Apply(got)
	if cleared.Round != nil {
		t.Fatalf("expected ClearRound to win over Round")
	}
	if got.RoundValue() != 2 {
		t.Fatalf("expected original pick untouched, got %d", got.RoundValue())
	}
}

func TestPatchRoundIsCopied(t *testing.T) {
	r := 1
	got := Patch{Round: &r}.Apply(Pick{})
	r = 5
	if got.RoundValue() != 1 {
		t.Fatalf("expected patch round to be copied, got %d", got.RoundValue())
	}
}

func TestPatchEmpty(t *testing.T) {
	if !(Patch{}).Empty() {
		t.Fatal("expected zero patch to be empty")
	}
	if (Patch{ClearRound: true}).Empty() {
		t.Fatal("expected clear-round patch to be non-empty")
	}
}

func TestWinnerValid(t *testing.T) {
	if !WinnerRed.Valid() || !WinnerBlue.Valid() {
		t.Fatal("expected red and blue to be valid")
	}
	if Winner("green").Valid() {
		t.Fatal("expected unknown corner to be invalid")
	}
}

func TestPickJSONKeepsNullRound(t *testing.T) {
	raw, err := json.Marshal(Pick{FightID: "f", Winner: WinnerBlue, Method: "DEC"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	round, ok := decoded["round"]
	if !ok || round != nil {
		t.Fatalf("expected explicit null round, got %v (present=%v)", round, ok)
	}
	if _, ok := decoded["id"]; ok {
		t.Fatalf("expected empty id to be omitted so the backend assigns one")
	}
}

func TestMethodSet(t *testing.T) {
	set := NewMethodSet([]string{"KO", "", "SUB", "DEC"})
	if len(set) != 3 {
		t.Fatalf("expected blanks dropped, got %v", set)
	}
	if !set.Contains("SUB") || set.Contains("TKO") {
		t.Fatalf("unexpected membership for %v", set)
	}
	if set.Default("DEC") != "KO" {
		t.Fatalf("expected first method as default")
	}
	if MethodSet(nil).Default("DEC") != "DEC" {
		t.Fatalf("expected fallback for empty set")
	}
}
