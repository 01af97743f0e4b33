package store

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"
)

// testEmbedding is a deterministic bag-of-words embedding. Texts sharing
// words land close together, which is enough for exercising resolution and
// filtered search without a real embedder.
func testEmbedding(_ context.Context, text string) ([]float32, error) {
	const dim = 64
	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%dim]++
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func intPtr(n int) *int { return &n }

// newTestStore builds a store with two indexed courses.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(testEmbedding, 5, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	err = s.AddCourse(ctx, CourseMeta{
		Title:      "Python Basics",
		Link:       "https://example.com/python",
		Instructor: "Ada",
		Lessons: []Lesson{
			{Number: 0, Title: "Introduction", Link: "https://example.com/python/0"},
			{Number: 1, Title: "Variables", Link: "https://example.com/python/1"},
		},
	}, []Chunk{
		{Content: "python is a high level programming language", CourseTitle: "Python Basics", LessonNumber: intPtr(0), Index: 0},
		{Content: "variables store values in python programs", CourseTitle: "Python Basics", LessonNumber: intPtr(1), Index: 1},
	})
	if err != nil {
		t.Fatalf("AddCourse(Python Basics) error: %v", err)
	}

	err = s.AddCourse(ctx, CourseMeta{
		Title:      "Statistics Fundamentals",
		Instructor: "Carl",
		Lessons:    []Lesson{{Number: 1, Title: "Distributions"}},
	}, []Chunk{
		{Content: "a distribution describes probabilities of outcomes", CourseTitle: "Statistics Fundamentals", LessonNumber: intPtr(1), Index: 0},
	})
	if err != nil {
		t.Fatalf("AddCourse(Statistics Fundamentals) error: %v", err)
	}

	return s
}

func TestSearch_Unfiltered(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "python programming language", "", nil)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if results.Empty() {
		t.Fatal("Search() returned no results")
	}
	if results.Metadata[0].CourseTitle != "Python Basics" {
		t.Errorf("top hit course = %q, want %q", results.Metadata[0].CourseTitle, "Python Basics")
	}
	if results.Metadata[0].LessonNumber == nil || *results.Metadata[0].LessonNumber != 0 {
		t.Errorf("top hit lesson = %v, want 0", results.Metadata[0].LessonNumber)
	}
}

func TestSearch_CourseFilterResolvesFuzzyName(t *testing.T) {
	s := newTestStore(t)

	// Partial name should resolve to "Python Basics" via the catalog.
	results, err := s.Search(context.Background(), "variables", "Python", nil)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	for i, meta := range results.Metadata {
		if meta.CourseTitle != "Python Basics" {
			t.Errorf("hit %d course = %q, want only Python Basics", i, meta.CourseTitle)
		}
	}
	if results.Empty() {
		t.Fatal("expected filtered results")
	}
}

func TestSearch_LessonFilter(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "python", "Python Basics", intPtr(1))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results.Documents) != 1 {
		t.Fatalf("got %d results, want 1", len(results.Documents))
	}
	if *results.Metadata[0].LessonNumber != 1 {
		t.Errorf("lesson = %d, want 1", *results.Metadata[0].LessonNumber)
	}
}

func TestSearch_NoMatchesIsEmptyNotError(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "anything", "Python Basics", intPtr(99))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !results.Empty() {
		t.Errorf("got %d results, want 0", len(results.Documents))
	}
}

func TestSearch_EmptyStoreCourseFilterFails(t *testing.T) {
	s, err := New(testEmbedding, 5, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = s.Search(context.Background(), "q", "Nonexistent Course", nil)
	if err == nil {
		t.Fatal("Search() error = nil, want resolution failure")
	}
	want := "No course found matching 'Nonexistent Course'"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Search(context.Background(), "", "", nil); err == nil {
		t.Error("Search(empty query) error = nil, want error")
	}
}

func TestOutline(t *testing.T) {
	s := newTestStore(t)

	meta, err := s.Outline(context.Background(), "Statistics")
	if err != nil {
		t.Fatalf("Outline() error: %v", err)
	}
	if meta.Title != "Statistics Fundamentals" {
		t.Errorf("Title = %q", meta.Title)
	}
	if len(meta.Lessons) != 1 || meta.Lessons[0].Title != "Distributions" {
		t.Errorf("Lessons = %+v", meta.Lessons)
	}
}

func TestLessonAndCourseLinks(t *testing.T) {
	s := newTestStore(t)

	if got := s.LessonLink("Python Basics", 1); got != "https://example.com/python/1" {
		t.Errorf("LessonLink() = %q", got)
	}
	if got := s.LessonLink("Python Basics", 42); got != "" {
		t.Errorf("LessonLink(unknown lesson) = %q, want empty", got)
	}
	if got := s.LessonLink("No Such Course", 1); got != "" {
		t.Errorf("LessonLink(unknown course) = %q, want empty", got)
	}
	if got := s.CourseLink("Python Basics"); got != "https://example.com/python" {
		t.Errorf("CourseLink() = %q", got)
	}
}

func TestCatalogAccessors(t *testing.T) {
	s := newTestStore(t)

	if got := s.CourseCount(); got != 2 {
		t.Errorf("CourseCount() = %d, want 2", got)
	}

	titles := s.ExistingCourseTitles()
	want := []string{"Python Basics", "Statistics Fundamentals"}
	if len(titles) != len(want) {
		t.Fatalf("ExistingCourseTitles() = %v", titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q (insertion order)", i, titles[i], want[i])
		}
	}

	if !s.HasCourse("Python Basics") {
		t.Error("HasCourse(Python Basics) = false")
	}
	if s.HasCourse("Python") {
		t.Error("HasCourse is exact-match; fuzzy title should be false")
	}
}
