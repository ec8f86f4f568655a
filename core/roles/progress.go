package roles

import (
	"regexp"
	"strconv"
	"strings"
)

// Level is a problem difficulty band.
type Level string

const (
	LevelElementary Level = "elementary"
	LevelMiddle     Level = "middle"
	LevelHigh       Level = "high"
)

// StudentLevel is what the welcomer learned about the learner.
type StudentLevel struct {
	Grade int    `json:"grade,omitempty"`
	Band  string `json:"band,omitempty"`
}

func (l StudentLevel) IsZero() bool { return l.Grade == 0 && l.Band == "" }

type Problem struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Progress is the part of a session's conversation context that roles read
// and update.
type Progress struct {
	StudentLevel      StudentLevel `json:"student_level"`
	CurrentProblem    *Problem     `json:"current_problem,omitempty"`
	ProblemsPresented int          `json:"problems_presented"`
	LastAnswer        string       `json:"last_answer,omitempty"`
	TutoringStep      string       `json:"tutoring_step,omitempty"`
	StudentProgress   string       `json:"student_progress,omitempty"`
}

var (
	gradePattern = regexp.MustCompile(`(?i)grade\s*(\d+)|(\d+)(?:st|nd|rd|th)?\s*grade`)
	bandPattern  = regexp.MustCompile(`(?i)\b(beginner|intermediate|advanced|elementary|middle|high)\b`)
)

// ExtractStudentLevel finds a grade ("grade 3", "5th grade") and a
// proficiency band in text. Fields that are not mentioned stay zero.
func ExtractStudentLevel(text string) StudentLevel {
	level := StudentLevel{}
	if match := gradePattern.FindStringSubmatch(text); match != nil {
		digits := match[1]
		if digits == "" {
			digits = match[2]
		}
		if grade, err := strconv.Atoi(digits); err == nil {
			level.Grade = grade
		}
	}
	if match := bandPattern.FindStringSubmatch(text); match != nil {
		level.Band = strings.ToLower(match[1])
	}
	return level
}

// Merge overlays the known fields of other onto l.
func (l StudentLevel) Merge(other StudentLevel) StudentLevel {
	if other.Grade != 0 {
		l.Grade = other.Grade
	}
	if other.Band != "" {
		l.Band = other.Band
	}
	return l
}

// DetermineLevel maps a learner to a problem band: grades up to 5 are
// elementary, up to 8 middle, above that high. Without a grade the band word
// decides; with nothing known the learner starts at elementary.
func DetermineLevel(level StudentLevel) Level {
	switch {
	case level.Grade > 8:
		return LevelHigh
	case level.Grade > 5:
		return LevelMiddle
	case level.Grade > 0:
		return LevelElementary
	}

	switch level.Band {
	case "middle", "intermediate":
		return LevelMiddle
	case "high", "advanced":
		return LevelHigh
	}
	return LevelElementary
}

var problems = map[Level][]string{
	LevelElementary: {
		"What is 15 + 27?",
		"If you have 24 apples and eat 8, how many do you have left?",
		"What is 7 × 6?",
		"Sarah has 3 boxes with 9 stickers in each box. How many stickers does she have in total?",
	},
	LevelMiddle: {
		"Solve for x: 2x + 5 = 17",
		"What is the area of a rectangle that is 8 units long and 5 units wide?",
		"If a triangle has angles of 60° and 70°, what is the third angle?",
		"Simplify: 3(x + 4) - 2x",
	},
	LevelHigh: {
		"Factor: x² - 5x + 6",
		"Find the derivative of f(x) = 3x² + 2x - 1",
		"Solve: log₂(x + 3) = 4",
		"If sin(θ) = 0.6 and θ is in the first quadrant, find cos(θ)",
	},
}

// NextProblem is a deterministic content lookup: the n-th problem presented
// in a session is the n-th entry of the learner's band, wrapping around.
func NextProblem(progress Progress) Problem {
	level := DetermineLevel(progress.StudentLevel)
	bank := problems[level]
	return Problem{Level: level, Text: bank[progress.ProblemsPresented%len(bank)]}
}
