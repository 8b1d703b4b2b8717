package database

import "github.com/tsamuels456/unboundedfigures/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Submission{},
		&models.SubmissionTag{},
		&models.Comment{},
		&models.Follow{},
		&models.View{},
		&models.TagPref{},
	}
}
