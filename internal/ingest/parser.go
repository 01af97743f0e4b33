// Package ingest turns course transcript files into indexed course content.
//
// A transcript starts with a header:
//
//	Course Title: ...
//	Course Link: ...
//	Course Instructor: ...
//
// followed by lesson blocks introduced by "Lesson N: Title" markers, each
// optionally followed by a "Lesson Link:" line. Text between the header and
// the first marker belongs to the course as a whole.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursechat/coursechat/internal/store"
)

// Section is a contiguous span of transcript text, attributed to one lesson
// or to the course itself when LessonNumber is nil.
type Section struct {
	LessonNumber *int
	Content      string
}

// Course is one parsed transcript.
type Course struct {
	Meta     store.CourseMeta
	Sections []Section
}

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseCourse reads one transcript. fallbackTitle names the course when the
// header omits "Course Title:" (callers pass the file name).
func ParseCourse(r io.Reader, fallbackTitle string) (*Course, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	course := &Course{Meta: store.CourseMeta{Title: fallbackTitle}}

	var (
		current     *Section
		buf         strings.Builder
		inHeader    = true
		pendingLink bool
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(buf.String())
		if current.Content != "" {
			course.Sections = append(course.Sections, *current)
		}
		buf.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			switch {
			case trimmed == "":
				continue
			case strings.HasPrefix(trimmed, "Course Title:"):
				course.Meta.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
				continue
			case strings.HasPrefix(trimmed, "Course Link:"):
				course.Meta.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
				continue
			case strings.HasPrefix(trimmed, "Course Instructor:"):
				course.Meta.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
				continue
			}
			// First non-header line ends the header.
			inHeader = false
			current = &Section{}
		}

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("parsing lesson number %q: %w", m[1], err)
			}
			current = &Section{LessonNumber: &number}
			course.Meta.Lessons = append(course.Meta.Lessons, store.Lesson{
				Number: number,
				Title:  m[2],
			})
			pendingLink = true
			continue
		}

		// A "Lesson Link:" line directly under the marker annotates the
		// lesson; anywhere else it is ordinary content.
		if pendingLink {
			pendingLink = false
			if strings.HasPrefix(trimmed, "Lesson Link:") {
				link := strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
				course.Meta.Lessons[len(course.Meta.Lessons)-1].Link = link
				continue
			}
		}

		if trimmed == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	flush()

	if course.Meta.Title == "" {
		return nil, fmt.Errorf("transcript has no course title")
	}
	return course, nil
}
