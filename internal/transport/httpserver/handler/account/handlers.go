package account

import (
	accountdomain "dondog-go/internal/domain/account"
	"dondog-go/pkg/logger"
)

type Handlers struct {
	Accounts *accountdomain.Service
	log      logger.Logger
}

func New(accounts *accountdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Accounts: accounts,
		log:      log,
	}
}
