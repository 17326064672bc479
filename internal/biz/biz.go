package biz

import (
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Parser       *usecase.CommandParser
	Context      *usecase.ContextRetrieverUsecase
	Dispatcher   *usecase.DispatcherUsecase
	Delivery     *usecase.DeliveryUsecase
	AutoResponse *usecase.AutoResponseUsecase
	Reaction     *usecase.ReactionUsecase
}
