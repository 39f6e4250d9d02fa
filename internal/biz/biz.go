package biz

import (
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Trigger   *usecase.TriggerUsecase
	Detection *usecase.DetectionUsecase
	Streak    *usecase.StreakUsecase
}
