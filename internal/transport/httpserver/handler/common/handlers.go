package common

import (
	pairingdomain "dondog-go/internal/domain/pairing"
	"dondog-go/internal/domain/session"
	userdomain "dondog-go/internal/domain/user"
	"dondog-go/pkg/logger"
)

type Handlers struct {
	Users    *userdomain.Service
	Pairing  *pairingdomain.Service
	Sessions *session.Resolver
	log      logger.Logger
}

func New(users *userdomain.Service, pairing *pairingdomain.Service, sessions *session.Resolver, log logger.Logger) *Handlers {
	return &Handlers{
		Users:    users,
		Pairing:  pairing,
		Sessions: sessions,
		log:      log,
	}
}
