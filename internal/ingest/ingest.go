package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coursechat/coursechat/internal/store"
)

// Catalog is the indexing surface the ingestor needs from the store.
type Catalog interface {
	HasCourse(title string) bool
	AddCourse(ctx context.Context, meta store.CourseMeta, chunks []store.Chunk) error
}

// Ingestor parses transcript files and loads them into the catalog.
type Ingestor struct {
	catalog Catalog
	chunker Chunker
	logger  *slog.Logger
}

// New creates an Ingestor.
func New(catalog Catalog, chunker Chunker, logger *slog.Logger) (*Ingestor, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{catalog: catalog, chunker: chunker, logger: logger}, nil
}

// ProcessFile ingests one transcript. Returns the number of chunks indexed;
// zero with a nil error means the course was already present.
func (in *Ingestor) ProcessFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	course, err := ParseCourse(f, fallback)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	if in.catalog.HasCourse(course.Meta.Title) {
		in.logger.Debug("course already indexed, skipping",
			"course", course.Meta.Title, "file", path)
		return 0, nil
	}

	chunks := in.buildChunks(course)
	if len(chunks) == 0 {
		in.logger.Warn("transcript produced no content", "file", path)
		return 0, nil
	}

	if err := in.catalog.AddCourse(ctx, course.Meta, chunks); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", course.Meta.Title, err)
	}

	in.logger.Info("indexed course",
		"course", course.Meta.Title,
		"lessons", len(course.Meta.Lessons),
		"chunks", len(chunks))
	return len(chunks), nil
}

// ProcessFolder ingests every .txt and .md file in dir, skipping courses
// already present. Returns courses added and total chunks indexed.
func (in *Ingestor) ProcessFolder(ctx context.Context, dir string) (courses, chunks int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading documents folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
		default:
			continue
		}

		n, err := in.ProcessFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			// One bad transcript must not block the rest of the folder.
			in.logger.Error("skipping transcript", "file", entry.Name(), "error", err)
			continue
		}
		if n > 0 {
			courses++
			chunks += n
		}
	}
	return courses, chunks, nil
}

// buildChunks chunks each section and stamps every chunk with its course
// and lesson context so retrieval hits stay attributable on their own.
func (in *Ingestor) buildChunks(course *Course) []store.Chunk {
	var chunks []store.Chunk
	index := 0

	for _, section := range course.Sections {
		for _, piece := range in.chunker.Split(section.Content) {
			content := fmt.Sprintf("Course %s content: %s", course.Meta.Title, piece)
			if section.LessonNumber != nil {
				content = fmt.Sprintf("Course %s Lesson %d content: %s",
					course.Meta.Title, *section.LessonNumber, piece)
			}
			chunks = append(chunks, store.Chunk{
				Content:      content,
				CourseTitle:  course.Meta.Title,
				LessonNumber: section.LessonNumber,
				Index:        index,
			})
			index++
		}
	}
	return chunks
}
