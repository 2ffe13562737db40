package app

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"meetup-app-go/internal/config"
	"meetup-app-go/internal/db"
	gatheringdomain "meetup-app-go/internal/domain/gathering"
	"meetup-app-go/internal/domain/notification"
	popularitydomain "meetup-app-go/internal/domain/popularity"
	scheduledomain "meetup-app-go/internal/domain/schedule"
	"meetup-app-go/internal/notifier/telegram"
	appredis "meetup-app-go/internal/redis"
	gatheringrepo "meetup-app-go/internal/repository/postgres/gathering"
	popularityrepo "meetup-app-go/internal/repository/postgres/popularity"
	schedulerepo "meetup-app-go/internal/repository/postgres/schedule"
	"meetup-app-go/internal/transport/httpserver"
	"meetup-app-go/internal/transport/httpserver/handler"
	"meetup-app-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	popularity *popularitydomain.Service
	log        logger.Logger
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing database")
	dbConn, err := db.New(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Driver == "sqlite" {
		// The SQL migrations target postgres; sqlite runs derive the
		// schema from the models.
		err = dbConn.AutoMigrate(
			&gatheringdomain.Gathering{},
			&gatheringdomain.Membership{},
			&scheduledomain.Schedule{},
			&scheduledomain.Membership{},
			&popularitydomain.Vote{},
			&popularitydomain.DailyLimit{},
			&popularitydomain.Score{},
			&popularitydomain.ScoreCategory{},
			&popularitydomain.VotePrivilege{},
		)
	} else {
		err = db.Migrate(dbConn)
	}
	if err != nil {
		return nil, err
	}

	var notifier notification.Notifier = notification.NewLogNotifier(log)
	if cfg.Telegram.Enabled {
		log.Info("app: initializing telegram notifier")
		notifier, err = telegram.New(cfg.Telegram, log)
		if err != nil {
			return nil, err
		}
	}

	scoreCache := popularitydomain.NewNoopCache()
	if cfg.Redis.Enabled {
		log.Info("app: connecting to redis", "addr", cfg.Redis.Addr)
		redisClient, err := appredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		scoreCache = appredis.NewScoreCache(redisClient, log)
	}

	gatherings := gatheringdomain.NewService(gatheringrepo.NewPostgres(dbConn), notifier)
	schedules := scheduledomain.NewService(schedulerepo.NewPostgres(dbConn), gatherings, notifier)

	popRepo := popularityrepo.NewPostgres(dbConn)
	aggregator := popularitydomain.NewAggregator(popRepo, scoreCache, log)
	popularity := popularitydomain.NewService(
		popRepo,
		schedules,
		aggregator,
		scoreCache,
		clockwork.NewRealClock(),
		cfg.Redis.ScoreTTL,
		cfg.Votes.RecentLimit,
	)

	log.Info("app: initializing router")
	handlers := handler.New(gatherings, schedules, popularity, log)
	router := httpserver.NewRouter(cfg, handlers, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
		popularity: popularity,
		log:        log,
	}, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	// Drain background recomputes before dropping the DB handle.
	a.popularity.Wait()

	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
