package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduler/internal/models"
)

// BatchCourseRepository reads enrolled course offerings with their instructors.
type BatchCourseRepository struct {
	db *sqlx.DB
}

// NewBatchCourseRepository constructs the repository.
func NewBatchCourseRepository(db *sqlx.DB) *BatchCourseRepository {
	return &BatchCourseRepository{db: db}
}

const batchCourseSelect = `
SELECT b.id AS batch_id, b.code AS batch_code, b.shift AS batch_shift, b.student_count,
       sc.id AS session_course_id, c.code AS course_code, c.title AS course_title,
       sc.semester, sc.department_id, c.class_type, sc.sessions_per_week,
       ia.teacher_id, t.name AS teacher_name
FROM batch_courses bc
JOIN batches b ON b.id = bc.batch_id
JOIN session_courses sc ON sc.id = bc.session_course_id
JOIN courses c ON c.id = sc.course_id
LEFT JOIN instructor_assignments ia ON ia.batch_id = bc.batch_id AND ia.session_course_id = bc.session_course_id
LEFT JOIN teachers t ON t.id = ia.teacher_id`

// ListByBatches returns every enrolled course of the batches. Courses without
// an instructor come back with a nil TeacherID.
func (r *BatchCourseRepository) ListByBatches(ctx context.Context, batchIDs []string) ([]models.BatchCourse, error) {
	if len(batchIDs) == 0 {
		return []models.BatchCourse{}, nil
	}
	query := batchCourseSelect + `
WHERE bc.batch_id = ANY($1)
ORDER BY b.code ASC, c.code ASC, sc.id ASC`
	var courses []models.BatchCourse
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(batchIDs)); err != nil {
		return nil, fmt.Errorf("list batch courses: %w", err)
	}
	return courses, nil
}
