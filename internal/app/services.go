package app

import (
	"github.com/votehub/core/internal/modules/catalog/category"
	"github.com/votehub/core/internal/modules/catalog/pollconfig"
	"github.com/votehub/core/internal/modules/polling/invite"
	"github.com/votehub/core/internal/modules/polling/poll"
	"github.com/votehub/core/internal/modules/polling/userpoll"
	"github.com/votehub/core/internal/modules/polling/vote"
	"github.com/votehub/core/internal/modules/reputation/profile"
	"github.com/votehub/core/internal/modules/reputation/psi"
)

type services struct {
	category   *category.Service
	pollConfig *pollconfig.Service
	poll       *poll.Service
	userPoll   *userpoll.Service
	invites    *invite.Ledger
	vote       *vote.Service
	profile    *profile.Service
	psi        *psi.Service
}

func (a *App) buildServices() *services {
	log := a.logger
	psiOpts := []psi.ServiceOption{psi.WithLogger(log)}
	if a.redis != nil {
		psiOpts = append(psiOpts, psi.WithTrendingCache(psi.NewRedisCache(a.redis), a.cfg.TrendingCacheTTL()))
	}
	return &services{
		category:   category.NewService(a.db, category.WithLogger(log)),
		pollConfig: pollconfig.NewService(a.db, pollconfig.WithLogger(log)),
		poll:       poll.NewService(a.db, poll.WithLogger(log)),
		userPoll:   userpoll.NewService(a.db, userpoll.WithLogger(log)),
		invites:    invite.NewLedger(a.db, invite.WithLogger(log)),
		vote:       vote.NewService(a.db, vote.WithLogger(log)),
		profile:    profile.NewService(a.db, profile.WithLogger(log)),
		psi:        psi.NewService(a.db, psiOpts...),
	}
}
