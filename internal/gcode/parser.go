package gcode

import (
	"bufio"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MoveType classifies a parsed motion command.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0 positioning
	MoveFeed                    // G1 cutting move in the XY plane
	MovePlunge                  // G1 with Z decreasing and no XY motion
	MoveRetract                 // Z increasing without XY motion
)

// Move is one G0/G1 command in absolute coordinates.
type Move struct {
	Type     MoveType
	From     [3]float64
	To       [3]float64
	FeedRate float64
}

// XYLength returns the planar distance travelled.
func (m Move) XYLength() float64 {
	return math.Hypot(m.To[0]-m.From[0], m.To[1]-m.From[1])
}

var coordRe = regexp.MustCompile(`([XYZF])(-?\d+\.?\d*)`)

// Parse reads G0/G1 moves from a program, tracking absolute position.
// Comments in ";" or "( )" form and every other command are skipped.
func Parse(code string) []Move {
	var (
		moves []Move
		pos   [3]float64
		feed  float64
	)

	sc := bufio.NewScanner(strings.NewReader(code))
	for sc.Scan() {
		line := stripComments(sc.Text())
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		word := strings.Fields(upper)[0]
		var rapid bool
		switch word {
		case "G0", "G00":
			rapid = true
		case "G1", "G01":
		default:
			continue
		}

		next, nextFeed := pos, feed
		for _, m := range coordRe.FindAllStringSubmatch(upper[len(word):], -1) {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "X":
				next[0] = v
			case "Y":
				next[1] = v
			case "Z":
				next[2] = v
			case "F":
				nextFeed = v
			}
		}

		moves = append(moves, Move{
			Type:     classifyMove(rapid, pos, next),
			From:     pos,
			To:       next,
			FeedRate: nextFeed,
		})
		pos, feed = next, nextFeed
	}
	return moves
}

func stripComments(line string) string {
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = line[:idx]
	}
	for {
		start := strings.Index(line, "(")
		if start < 0 {
			break
		}
		end := strings.Index(line[start:], ")")
		if end < 0 {
			line = line[:start]
			break
		}
		line = line[:start] + line[start+end+1:]
	}
	return strings.TrimSpace(line)
}

func classifyMove(rapid bool, from, to [3]float64) MoveType {
	dz := to[2] - from[2]
	hasXY := from[0] != to[0] || from[1] != to[1]

	switch {
	case rapid:
		if dz > 0 {
			return MoveRetract
		}
		return MoveRapid
	case dz < -0.001 && !hasXY:
		return MovePlunge
	case dz > 0.001 && !hasXY:
		return MoveRetract
	default:
		return MoveFeed
	}
}

// Stats summarizes a parsed program.
type Stats struct {
	Rapids      int
	Feeds       int
	Plunges     int
	Retracts    int
	CutLength   float64 // XY distance of feed moves
	RapidLength float64
	MinDepth    float64 // Lowest Z reached
	MinX, MinY  float64 // Extent of feed moves
	MaxX, MaxY  float64
}

// Summarize counts moves and measures the cut of a parsed program.
func Summarize(moves []Move) Stats {
	st := Stats{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, m := range moves {
		st.MinDepth = math.Min(st.MinDepth, m.To[2])
		switch m.Type {
		case MoveRapid:
			st.Rapids++
			st.RapidLength += m.XYLength()
		case MoveRetract:
			st.Retracts++
		case MovePlunge:
			st.Plunges++
		case MoveFeed:
			st.Feeds++
			st.CutLength += m.XYLength()
			for _, p := range [][3]float64{m.From, m.To} {
				st.MinX, st.MaxX = math.Min(st.MinX, p[0]), math.Max(st.MaxX, p[0])
				st.MinY, st.MaxY = math.Min(st.MinY, p[1]), math.Max(st.MaxY, p[1])
			}
		}
	}
	if st.Feeds == 0 {
		st.MinX, st.MinY, st.MaxX, st.MaxY = 0, 0, 0, 0
	}
	return st
}
