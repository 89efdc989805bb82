package gcode

import (
	"math"
	"testing"
)

func TestParse_Empty(t *testing.T) {
	if moves := Parse(""); len(moves) != 0 {
		t.Errorf("expected 0 moves for empty input, got %d", len(moves))
	}
}

func TestParse_CommentsOnly(t *testing.T) {
	code := `; This is a comment
(parenthetical comment)
( unterminated
`
	if moves := Parse(code); len(moves) != 0 {
		t.Errorf("expected 0 moves for comments-only input, got %d", len(moves))
	}
}

func TestParse_MoveTypes(t *testing.T) {
	code := `G0 X10.000 Y20.000
G0 Z5.000
G1 Z-6.000 F500.0
G1 X100.000 Y20.000 F1500.0
G0 Z5.000
`
	moves := Parse(code)
	want := []MoveType{MoveRapid, MoveRetract, MovePlunge, MoveFeed, MoveRetract}
	if len(moves) != len(want) {
		t.Fatalf("expected %d moves, got %d", len(want), len(moves))
	}
	for i, w := range want {
		if moves[i].Type != w {
			t.Errorf("move %d: expected type %d, got %d", i, w, moves[i].Type)
		}
	}

	plunge := moves[2]
	if plunge.From[2] != 5 || plunge.To[2] != -6 {
		t.Errorf("expected Z from 5 to -6, got %.3f to %.3f", plunge.From[2], plunge.To[2])
	}
	feed := moves[3]
	if feed.From != [3]float64{10, 20, -6} || feed.To != [3]float64{100, 20, -6} {
		t.Errorf("unexpected feed move %+v", feed)
	}
	if feed.FeedRate != 1500 || feed.XYLength() != 90 {
		t.Errorf("expected feed 1500 over 90, got %.1f over %.3f", feed.FeedRate, feed.XYLength())
	}
}

func TestParse_SkipsOtherCommandsAndComments(t *testing.T) {
	code := `G90
G21 ; metric
M3 S18000
G0 X1 Y2 (rapid) Z3
G17
`
	moves := Parse(code)
	if len(moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(moves))
	}
	if moves[0].To != [3]float64{1, 2, 3} {
		t.Errorf("expected (1,2,3), got %v", moves[0].To)
	}
}

func TestParse_FeedRateSticky(t *testing.T) {
	moves := Parse("G1 X10 F800\nG1 X20\ng01 x-5.5 y-2\n")
	if len(moves) != 3 {
		t.Fatalf("expected 3 moves, got %d", len(moves))
	}
	for i, m := range moves {
		if m.FeedRate != 800 {
			t.Errorf("move %d: expected sticky feed 800, got %.1f", i, m.FeedRate)
		}
	}
	if moves[2].To[0] != -5.5 || moves[2].To[1] != -2 {
		t.Errorf("expected negative coordinates, got %v", moves[2].To)
	}
}

func TestSummarize(t *testing.T) {
	code := `G0 Z5
G0 X0 Y0
G1 Z-3 F300
G1 X10 Y0 F1000
G1 X10 Y5
G0 Z5
G0 X10 Y15
`
	st := Summarize(Parse(code))
	if st.Plunges != 1 || st.Feeds != 2 || st.Retracts != 2 || st.Rapids != 2 {
		t.Errorf("unexpected counts %+v", st)
	}
	if math.Abs(st.CutLength-15) > 1e-9 {
		t.Errorf("expected cut length 15, got %.3f", st.CutLength)
	}
	if math.Abs(st.RapidLength-10) > 1e-9 {
		t.Errorf("expected rapid length 10, got %.3f", st.RapidLength)
	}
	if st.MinDepth != -3 {
		t.Errorf("expected min depth -3, got %.3f", st.MinDepth)
	}
	if st.MinX != 0 || st.MaxX != 10 || st.MinY != 0 || st.MaxY != 5 {
		t.Errorf("unexpected extent %+v", st)
	}
}

func TestSummarize_NoFeeds(t *testing.T) {
	st := Summarize(Parse("G0 X5 Y5\n"))
	if st.Feeds != 0 || st.MinX != 0 || st.MaxX != 0 {
		t.Errorf("expected zero extent without feed moves, got %+v", st)
	}
}
