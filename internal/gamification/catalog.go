package gamification

import "github.com/taskquest/taskquest/internal/models"

// DefaultCatalog returns the built-in achievement definitions. The
// catalog is seeded into the achievements table at startup and by the
// admin CLI; seeding is an idempotent upsert keyed by id.
//
// Each definition carries an explicit metric tag instead of encoding
// its category in the id string, so the evaluator dispatches on a
// closed enumeration.
func DefaultCatalog() []models.AchievementDefinition {
	return []models.AchievementDefinition{
		{ID: "first-task", Name: "First Steps", Description: "Complete your first task", Icon: "🎯", Metric: models.MetricTaskCount, RequiredProgress: 1},
		{ID: "task-master-10", Name: "Task Master", Description: "Complete 10 tasks", Icon: "⭐", Metric: models.MetricTaskCount, RequiredProgress: 10},
		{ID: "task-master-50", Name: "Task Expert", Description: "Complete 50 tasks", Icon: "🌟", Metric: models.MetricTaskCount, RequiredProgress: 50},
		{ID: "task-master-100", Name: "Task Legend", Description: "Complete 100 tasks", Icon: "👑", Metric: models.MetricTaskCount, RequiredProgress: 100},
		{ID: "level-5", Name: "Rising Star", Description: "Reach level 5", Icon: "⚡", Metric: models.MetricLevel, RequiredProgress: 5},
		{ID: "level-10", Name: "Power User", Description: "Reach level 10", Icon: "🔥", Metric: models.MetricLevel, RequiredProgress: 10},
		{ID: "level-20", Name: "Elite", Description: "Reach level 20", Icon: "💫", Metric: models.MetricLevel, RequiredProgress: 20},
	}
}
