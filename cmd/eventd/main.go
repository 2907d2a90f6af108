// Command eventd is the monolith entry point: it wires every component
// storage/shared.Database, the notification outbox and its puller, the
// vacuum sweep, and the HTTP API surface into one running process, the way
// the teacher's cmd/dendrite-demo-i2p wires setup.ParseFlags into a single
// running server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/foxford/eventd/internal/admission/bancache"
	adminpostgres "github.com/foxford/eventd/internal/admission/storage/postgres"
	adminshared "github.com/foxford/eventd/internal/admission/storage/shared"
	"github.com/foxford/eventd/internal/adjust"
	adjustpostgres "github.com/foxford/eventd/internal/adjust/storage/postgres"
	adjustshared "github.com/foxford/eventd/internal/adjust/storage/shared"
	"github.com/foxford/eventd/internal/authz"
	"github.com/foxford/eventd/internal/broker"
	"github.com/foxford/eventd/internal/commit"
	"github.com/foxford/eventd/internal/config"
	editionpostgres "github.com/foxford/eventd/internal/edition/storage/postgres"
	editionshared "github.com/foxford/eventd/internal/edition/storage/shared"
	eventpostgres "github.com/foxford/eventd/internal/eventstore/storage/postgres"
	eventshared "github.com/foxford/eventd/internal/eventstore/storage/shared"
	"github.com/foxford/eventd/internal/httpapi"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/objectstore"
	roompostgres "github.com/foxford/eventd/internal/roomregistry/storage/postgres"
	roomshared "github.com/foxford/eventd/internal/roomregistry/storage/shared"
	"github.com/foxford/eventd/internal/sqlutil"
	"github.com/foxford/eventd/internal/statequery"
	"github.com/foxford/eventd/internal/vacuum"
)

var (
	configPath = flag.String("config", "eventd.yaml", "Path to the service's YAML config file")
	bindAddr   = flag.String("addr", ":8080", "Address to listen on")
)

func main() {
	flag.Parse()
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to load config")
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, AttachStacktrace: true}); err != nil {
			log.WithError(err).Error("eventd: sentry init failed, continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	rw := openPool(log, cfg.Postgres.RWDSN, cfg.Postgres)
	defer rw.Close()
	ro := rw
	if cfg.Postgres.RODSN != "" {
		ro = openPool(log, cfg.Postgres.ReadOnlyDSN(), cfg.Postgres)
		defer ro.Close()
	}

	writer := sqlutil.NewExclusiveWriter()

	rooms := mustRoomRegistry(log, rw, writer)
	events := mustEventStore(log, rw, writer, cfg.MaxPayloadBytes)
	editions := mustEditionStore(log, rw, writer)
	adjustments := mustAdjustmentStore(log, rw)

	outbox, err := notify.NewOutbox(rw)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare notification outbox")
	}
	if err := notify.CreateOutboxTable(rw); err != nil {
		log.WithError(err).Fatal("eventd: failed to create notification table")
	}

	objStore := objectstore.NewHTTPStore(events, cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey)
	brokerClient := broker.NewHTTPBroker(cfg.Broker.BaseURL, cfg.Broker.Timeout)
	authzEngine := authz.NewHTTPEngine(cfg.Authz.BaseURL, cfg.Authz.Timeout)

	adminDB := mustAdmission(log, rw, writer, rooms, events, brokerClient, authzEngine, outbox, cfg.Authz.BanTTL)
	adminDB.BanCache = bancache.New(cfg.Authz.CacheTTL, func(ctx context.Context, accountID string, roomID uuid.UUID) (bool, error) {
		banned, err := adminDB.Bans.ExistsForRoom(ctx, nil, accountID, roomID)
		if err != nil || banned {
			return banned, err
		}
		room, err := rooms.Find(ctx, roomID)
		if err != nil {
			return false, err
		}
		if room.ClassroomID == nil {
			return false, nil
		}
		return adminDB.Bans.ExistsForClassroom(ctx, nil, accountID, *room.ClassroomID)
	})

	adjustEngine := &adjust.Engine{Rooms: rooms, Events: events, Adjustments: adjustments}
	commitEngine := &commit.Engine{Rooms: rooms, Events: events, Editions: editions}
	stateEngine := &statequery.Engine{Events: events}

	vacuumRunner := &vacuum.Runner{
		Events: events,
		Config: vacuum.Config{
			MaxHistorySize:     cfg.Vacuum.MaxHistorySize,
			MaxHistoryLifetime: cfg.Vacuum.MaxHistoryLifetime,
			MaxDeletedLifetime: cfg.Vacuum.MaxDeletedLifetime,
		},
		Log: log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go vacuumRunner.Run(ctx, time.Hour)

	if len(cfg.JetStream.URLs) > 0 {
		nc, err := nats.Connect(cfg.JetStream.URLs[0])
		if err != nil {
			log.WithError(err).Error("eventd: failed to connect to NATS, notifications will queue undelivered")
		} else {
			defer nc.Close()
			js, err := nc.JetStream()
			if err != nil {
				log.WithError(err).Error("eventd: failed to acquire JetStream context")
			} else {
				puller := notify.NewPuller(rw, js, cfg.JetStream.Prefix, log)
				go puller.Run(ctx, 2*time.Second)
			}
		}
	}

	rateLimiter := httpapi.NewRateLimiter(cfg.RateLimiting)

	deps := &httpapi.Deps{
		Rooms:           rooms,
		Events:          events,
		Admission:       adminDB,
		Editions:        editions,
		StateQuery:      stateEngine,
		Adjust:          adjustEngine,
		Commit:          commitEngine,
		Outbox:          outbox,
		ObjectStore:     objStore,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		RateLimiter:     rateLimiter,
	}
	router := httpapi.NewRouter(deps)

	server := &http.Server{
		Addr:              *bindAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", *bindAddr).Info("eventd: listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("eventd: server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("eventd: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("eventd: graceful shutdown failed")
	}
	cancel()
}

func openPool(log *logrus.Entry, dsn string, cfg config.Postgres) *sql.DB {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to open postgres pool")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db
}

func mustRoomRegistry(log *logrus.Entry, db *sql.DB, writer sqlutil.Writer) *roomshared.Database {
	if err := roompostgres.CreateRoomsTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create rooms table")
	}
	rooms, err := roompostgres.PrepareRoomsTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare rooms table")
	}
	return &roomshared.Database{DB: db, Writer: writer, Rooms: rooms}
}

func mustEventStore(log *logrus.Entry, db *sql.DB, writer sqlutil.Writer, maxPayloadBytes int) *eventshared.Database {
	if err := eventpostgres.CreateEventsTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create events table")
	}
	events, err := eventpostgres.PrepareEventsTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare events table")
	}
	return &eventshared.Database{DB: db, Writer: writer, Events: events, MaxPayloadBytes: maxPayloadBytes}
}

func mustEditionStore(log *logrus.Entry, db *sql.DB, writer sqlutil.Writer) *editionshared.Database {
	if err := editionpostgres.CreateEditionsTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create editions table")
	}
	editions, err := editionpostgres.PrepareEditionsTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare editions table")
	}
	if err := editionpostgres.CreateChangesTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create changes table")
	}
	changes, err := editionpostgres.PrepareChangesTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare changes table")
	}
	return &editionshared.Database{DB: db, Writer: writer, Editions: editions, Changes: changes}
}

func mustAdjustmentStore(log *logrus.Entry, db *sql.DB) *adjustshared.Database {
	if err := adjustpostgres.CreateAdjustmentsTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create adjustments table")
	}
	adjustments, err := adjustpostgres.PrepareAdjustmentsTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare adjustments table")
	}
	return &adjustshared.Database{Adjustments: adjustments}
}

func mustAdmission(
	log *logrus.Entry, db *sql.DB, writer sqlutil.Writer,
	rooms *roomshared.Database, events *eventshared.Database,
	brk broker.Broker, authzEngine authz.Engine, outbox *notify.Outbox, banTTL time.Duration,
) *adminshared.Database {
	if err := adminpostgres.CreateAgentsTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create agents table")
	}
	agents, err := adminpostgres.PrepareAgentsTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare agents table")
	}
	if err := adminpostgres.CreateBansTable(db); err != nil {
		log.WithError(err).Fatal("eventd: failed to create bans table")
	}
	bans, err := adminpostgres.PrepareBansTable(db)
	if err != nil {
		log.WithError(err).Fatal("eventd: failed to prepare bans table")
	}
	return &adminshared.Database{
		DB: db, Writer: writer, Agents: agents, Bans: bans,
		Rooms: rooms, Events: events, Broker: brk, Authz: authzEngine,
		Outbox: outbox, BanTTL: banTTL,
	}
}
