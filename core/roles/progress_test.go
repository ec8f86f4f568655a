package roles

import "testing"

func TestExtractStudentLevel(t *testing.T) {
	testCases := []struct {
		text     string
		expected StudentLevel
	}{
		{text: "I'm in grade 3", expected: StudentLevel{Grade: 3}},
		{text: "I'm in 7th grade and pretty advanced", expected: StudentLevel{Grade: 7, Band: "advanced"}},
		{text: "Grade10, I guess", expected: StudentLevel{Grade: 10}},
		{text: "I'm a beginner", expected: StudentLevel{Band: "beginner"}},
		{text: "I like math", expected: StudentLevel{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.text, func(t *testing.T) {
			if got := ExtractStudentLevel(testCase.text); got != testCase.expected {
				t.Fatalf("expected %+v, got %+v", testCase.expected, got)
			}
		})
	}
}

func TestStudentLevelMergeKeepsKnownFields(t *testing.T) {
	level := StudentLevel{Grade: 4, Band: "beginner"}.Merge(StudentLevel{Band: "intermediate"})
	if level.Grade != 4 || level.Band != "intermediate" {
		t.Fatalf("unexpected merge result %+v", level)
	}
}

func TestDetermineLevel(t *testing.T) {
	testCases := []struct {
		name     string
		level    StudentLevel
		expected Level
	}{
		{name: "unknown", level: StudentLevel{}, expected: LevelElementary},
		{name: "grade 5", level: StudentLevel{Grade: 5}, expected: LevelElementary},
		{name: "grade 6", level: StudentLevel{Grade: 6}, expected: LevelMiddle},
		{name: "grade 8", level: StudentLevel{Grade: 8}, expected: LevelMiddle},
		{name: "grade 11", level: StudentLevel{Grade: 11}, expected: LevelHigh},
		{name: "band only", level: StudentLevel{Band: "advanced"}, expected: LevelHigh},
		{name: "grade wins over band", level: StudentLevel{Grade: 2, Band: "advanced"}, expected: LevelElementary},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := DetermineLevel(testCase.level); got != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, got)
			}
		})
	}
}

func TestNextProblemRotatesDeterministically(t *testing.T) {
	progress := Progress{StudentLevel: StudentLevel{Grade: 7}}

	first := NextProblem(progress)
	if first.Level != LevelMiddle || first.Text != "Solve for x: 2x + 5 = 17" {
		t.Fatalf("unexpected first problem %+v", first)
	}

	progress.ProblemsPresented = 4
	if wrapped := NextProblem(progress); wrapped != first {
		t.Fatalf("expected problem bank to wrap around, got %+v", wrapped)
	}
}
