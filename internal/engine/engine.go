package engine

import (
	"database/sql"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"garagedesk/internal/automod"
	"garagedesk/internal/config"
	"garagedesk/internal/events"
	"garagedesk/internal/notify"
	"garagedesk/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Notify *notify.Dispatcher
	Mod    *automod.Moderator
	Config *config.Config
	Logger *log.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, gateway notify.Gateway) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{DB: db},
		Notify: &notify.Dispatcher{Gateway: gateway, Staff: r},
		Mod:    automod.New(cfg, nil),
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) surface(canonical string) string {
	if e.Config != nil {
		return e.Config.Surface(canonical)
	}
	return canonical
}

// newRecordID builds ids like REP-4921837205: the trailing digits of the
// creation time plus a random four-digit suffix. The format is kept from
// the running system so existing record references stay readable.
func (e Engine) newRecordID(prefix string) string {
	millis := fmt.Sprintf("%d", e.now().UnixMilli())
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("%s-%s%04d", prefix, millis, 1000+rand.IntN(9000))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
