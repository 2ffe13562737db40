package handler

import (
	"net/http"

	gatheringdomain "meetup-app-go/internal/domain/gathering"
	popularitydomain "meetup-app-go/internal/domain/popularity"
	scheduledomain "meetup-app-go/internal/domain/schedule"
	"meetup-app-go/pkg/logger"
)

type Handlers struct {
	Gatherings *gatheringdomain.Service
	Schedules  *scheduledomain.Service
	Popularity *popularitydomain.Service
	log        logger.Logger
}

func New(gatherings *gatheringdomain.Service, schedules *scheduledomain.Service, popularity *popularitydomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Gatherings: gatherings,
		Schedules:  schedules,
		Popularity: popularity,
		log:        log,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
