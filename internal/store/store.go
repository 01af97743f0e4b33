// Package store implements the course vector store: semantic search over
// transcript chunks plus a course catalog used for fuzzy course-name
// resolution and outline/link lookups.
//
// Two chromem-go collections back the store. The catalog holds one document
// per course whose content is the course title, so a partial or misspelled
// course name resolves to the nearest real title by embedding similarity.
// The content collection holds one document per transcript chunk with
// course/lesson metadata for filtered search.
//
// The index is process-local and rebuilt from the docs folder at startup;
// there is no on-disk persistence.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Collection names.
const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
)

// ErrEmptyQuery indicates a search with no query text.
var ErrEmptyQuery = errors.New("store: empty query")

// Lesson is one lesson of a course as recorded in the catalog.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// CourseMeta is the catalog entry for a course.
type CourseMeta struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is one indexable piece of course content.
// LessonNumber is nil for chunks outside any lesson (e.g. course overview).
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}

// ChunkMeta is the metadata attached to one search hit.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults is an ordered set of search hits, best match first.
type SearchResults struct {
	Documents    []string
	Metadata     []ChunkMeta
	Similarities []float32
}

// Empty reports whether the search produced no hits.
func (r SearchResults) Empty() bool { return len(r.Documents) == 0 }

// Store is the course vector store. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	catalog    *chromem.Collection
	content    *chromem.Collection
	courses    map[string]CourseMeta // keyed by exact course title
	titles     []string              // insertion order
	chunkTotal map[string]int        // chunks per course title
	lessonCnt  map[string]map[int]int
	maxResults int
	logger     *slog.Logger
}

// New creates an empty Store using the given embedding function.
func New(embed chromem.EmbeddingFunc, maxResults int, logger *slog.Logger) (*Store, error) {
	if embed == nil {
		return nil, errors.New("store: embedding function is required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	db := chromem.NewDB()

	catalog, err := db.CreateCollection(catalogCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating catalog collection: %w", err)
	}
	content, err := db.CreateCollection(contentCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating content collection: %w", err)
	}

	return &Store{
		catalog:    catalog,
		content:    content,
		courses:    make(map[string]CourseMeta),
		chunkTotal: make(map[string]int),
		lessonCnt:  make(map[string]map[int]int),
		maxResults: maxResults,
		logger:     logger,
	}, nil
}

// AddCourse indexes a course's catalog entry and content chunks.
// Re-adding an existing title replaces its catalog entry but not its chunks;
// callers are expected to check HasCourse first (see ingest).
func (s *Store) AddCourse(ctx context.Context, meta CourseMeta, chunks []Chunk) error {
	if meta.Title == "" {
		return errors.New("store: course title is required")
	}

	lessonsJSON, err := json.Marshal(meta.Lessons)
	if err != nil {
		return fmt.Errorf("encoding lessons for %q: %w", meta.Title, err)
	}

	// chromem metadata values must be strings.
	err = s.catalog.AddDocument(ctx, chromem.Document{
		ID:      meta.Title,
		Content: meta.Title,
		Metadata: map[string]string{
			"instructor":   meta.Instructor,
			"course_link":  meta.Link,
			"lessons_json": string(lessonsJSON),
		},
	})
	if err != nil {
		return fmt.Errorf("indexing catalog entry for %q: %w", meta.Title, err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		md := map[string]string{
			"course_title": chunk.CourseTitle,
			"chunk_index":  strconv.Itoa(chunk.Index),
		}
		if chunk.LessonNumber != nil {
			md["lesson_number"] = strconv.Itoa(*chunk.LessonNumber)
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s-%d", chunk.CourseTitle, chunk.Index),
			Content:  chunk.Content,
			Metadata: md,
		})
	}
	if len(docs) > 0 {
		if err := s.content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("indexing content for %q: %w", meta.Title, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[meta.Title]; !exists {
		s.titles = append(s.titles, meta.Title)
	}
	s.courses[meta.Title] = meta
	for _, chunk := range chunks {
		s.chunkTotal[chunk.CourseTitle]++
		if chunk.LessonNumber != nil {
			if s.lessonCnt[chunk.CourseTitle] == nil {
				s.lessonCnt[chunk.CourseTitle] = make(map[int]int)
			}
			s.lessonCnt[chunk.CourseTitle][*chunk.LessonNumber]++
		}
	}

	s.logger.Debug("course indexed",
		"title", meta.Title,
		"lessons", len(meta.Lessons),
		"chunks", len(chunks),
	)
	return nil
}

// Search performs a filtered semantic search over course content.
//
// courseName, when non-empty, is resolved to an exact catalog title by
// embedding similarity; an unresolvable name is an error whose text is fed
// back to the model verbatim. A nil lessonNumber means no lesson filter.
// Zero matches is not an error: it returns an empty SearchResults.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) (SearchResults, error) {
	if query == "" {
		return SearchResults{}, ErrEmptyQuery
	}

	where := make(map[string]string)
	if courseName != "" {
		title, err := s.ResolveCourse(ctx, courseName)
		if err != nil {
			return SearchResults{}, err
		}
		where["course_title"] = title
	}
	if lessonNumber != nil {
		where["lesson_number"] = strconv.Itoa(*lessonNumber)
	}

	// chromem rejects nResults larger than the candidate set, so clamp
	// using our own counts instead of probing for the error.
	n := s.candidateCount(where)
	if n > s.maxResults {
		n = s.maxResults
	}
	if n == 0 {
		return SearchResults{}, nil
	}

	hits, err := s.content.Query(ctx, query, n, where, nil)
	if err != nil {
		return SearchResults{}, fmt.Errorf("querying content: %w", err)
	}

	results := SearchResults{
		Documents:    make([]string, 0, len(hits)),
		Metadata:     make([]ChunkMeta, 0, len(hits)),
		Similarities: make([]float32, 0, len(hits)),
	}
	for _, hit := range hits {
		meta := ChunkMeta{CourseTitle: hit.Metadata["course_title"]}
		if raw, ok := hit.Metadata["lesson_number"]; ok {
			if lesson, err := strconv.Atoi(raw); err == nil {
				meta.LessonNumber = &lesson
			}
		}
		if raw, ok := hit.Metadata["chunk_index"]; ok {
			meta.ChunkIndex, _ = strconv.Atoi(raw)
		}
		results.Documents = append(results.Documents, hit.Content)
		results.Metadata = append(results.Metadata, meta)
		results.Similarities = append(results.Similarities, hit.Similarity)
	}
	return results, nil
}

// candidateCount returns how many indexed chunks match the filter.
func (s *Store) candidateCount(where map[string]string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, hasCourse := where["course_title"]
	lessonRaw, hasLesson := where["lesson_number"]

	switch {
	case hasCourse && hasLesson:
		lesson, err := strconv.Atoi(lessonRaw)
		if err != nil {
			return 0
		}
		return s.lessonCnt[course][lesson]
	case hasCourse:
		return s.chunkTotal[course]
	case hasLesson:
		lesson, err := strconv.Atoi(lessonRaw)
		if err != nil {
			return 0
		}
		total := 0
		for _, counts := range s.lessonCnt {
			total += counts[lesson]
		}
		return total
	default:
		return s.content.Count()
	}
}

// ResolveCourse maps a possibly partial course name to an exact catalog
// title via embedding similarity over the catalog collection.
func (s *Store) ResolveCourse(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	count := len(s.titles)
	s.mu.RUnlock()

	if count == 0 {
		return "", fmt.Errorf("No course found matching '%s'", name)
	}

	hits, err := s.catalog.Query(ctx, name, 1, nil, nil)
	if err != nil || len(hits) == 0 {
		return "", fmt.Errorf("No course found matching '%s'", name)
	}
	return hits[0].ID, nil
}

// Outline returns the catalog entry for a (fuzzily matched) course name.
func (s *Store) Outline(ctx context.Context, name string) (CourseMeta, error) {
	title, err := s.ResolveCourse(ctx, name)
	if err != nil {
		return CourseMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.courses[title]
	if !ok {
		return CourseMeta{}, fmt.Errorf("No course found matching '%s'", name)
	}
	return meta, nil
}

// LessonLink returns the deep link for a lesson of the given course,
// or "" when the course or lesson has no link.
func (s *Store) LessonLink(courseTitle string, lessonNumber int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.courses[courseTitle]
	if !ok {
		return ""
	}
	for _, lesson := range meta.Lessons {
		if lesson.Number == lessonNumber {
			return lesson.Link
		}
	}
	return ""
}

// CourseLink returns the course-level link, or "" when unknown.
func (s *Store) CourseLink(courseTitle string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses[courseTitle].Link
}

// CourseCount returns the number of indexed courses.
func (s *Store) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.titles)
}

// ExistingCourseTitles returns all indexed course titles in insertion order.
func (s *Store) ExistingCourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}

// HasCourse reports whether a course with the exact title is indexed.
func (s *Store) HasCourse(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[title]
	return ok
}
