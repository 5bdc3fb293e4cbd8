package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduler/internal/models"
)

// TeacherPreferenceRepository reads teacher availability rules.
type TeacherPreferenceRepository struct {
	db *sqlx.DB
}

// NewTeacherPreferenceRepository constructs the repository.
func NewTeacherPreferenceRepository(db *sqlx.DB) *TeacherPreferenceRepository {
	return &TeacherPreferenceRepository{db: db}
}

// ListByTeachers returns stored preferences for the teachers. Teachers without
// a row are simply absent.
func (r *TeacherPreferenceRepository) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error) {
	if len(teacherIDs) == 0 {
		return []models.TeacherPreference{}, nil
	}
	const query = `SELECT id, teacher_id, unavailable, updated_at FROM teacher_preferences WHERE teacher_id = ANY($1) ORDER BY teacher_id ASC`
	var prefs []models.TeacherPreference
	if err := r.db.SelectContext(ctx, &prefs, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher preferences: %w", err)
	}
	return prefs, nil
}
