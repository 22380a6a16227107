package handler

import (
	accounthandler "dondog-go/internal/transport/httpserver/handler/account"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	pairinghandler "dondog-go/internal/transport/httpserver/handler/pairing"
	postshandler "dondog-go/internal/transport/httpserver/handler/posts"
)

type Handlers struct {
	Common  *commonhandler.Handlers
	Pairing *pairinghandler.Handlers
	Posts   *postshandler.Handlers
	Account *accounthandler.Handlers
}

func New(common *commonhandler.Handlers, pairing *pairinghandler.Handlers, posts *postshandler.Handlers, account *accounthandler.Handlers) *Handlers {
	return &Handlers{
		Common:  common,
		Pairing: pairing,
		Posts:   posts,
		Account: account,
	}
}
