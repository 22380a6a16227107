package pairing

import (
	pairingdomain "dondog-go/internal/domain/pairing"
	"dondog-go/pkg/logger"
)

type Handlers struct {
	Pairing *pairingdomain.Service
	log     logger.Logger
}

func New(pairing *pairingdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Pairing: pairing,
		log:     log,
	}
}
