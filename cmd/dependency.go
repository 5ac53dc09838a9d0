package cmd

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"log"
	"os"
	"sync"
	"ticketer/common/constant"
	"ticketer/common/contract"
	commonJetstream "ticketer/common/jetstream"
	"ticketer/common/otel"
	"ticketer/model"
	"ticketer/outbound/fanout"
	"ticketer/outbound/store"
	"ticketer/queue"
	"time"
)

const (
	storeDriverRedis  = "redis"
	storeDriverMemory = "memory"
)

// storeDriver overrides store.driver from the command line.
var storeDriver string

// memoryStore is shared by every process started from one dev command.
var memoryStore = sync.OnceValue(func() *store.MemoryStore {
	return store.NewMemoryStore(fanout.NewLocal())
})

func newCfg(name string) *viper.Viper {
	config := viper.New()

	config.SetConfigName(name)
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetDefault("store.driver", storeDriverRedis)
	config.SetDefault("redis.prefix", constant.DefaultRedisPrefix)
	config.SetDefault("queue.numbering", string(model.SchemeSequential))
	config.SetDefault("queue.atomic", true)
	config.SetDefault("queue.coded_max_attempts", constant.DefaultCodedMaxAttempts)
	config.SetDefault("queue.expiry", constant.DefaultTicketExpiry)
	config.SetDefault("queue.rollover_wait", constant.DefaultRolloverWait)
	config.SetDefault("queue.upcoming_size", constant.DefaultUpcomingSize)
	config.SetDefault("cashier.default_pin", constant.DefaultPin)

	err := config.ReadInConfig()
	if err != nil {
		log.Fatalln(err)
	}

	err = os.Setenv("TZ", config.GetString("server.timezone"))
	if err != nil {
		log.Fatalln(err)
	}

	return config
}

func newLocation(cfg *viper.Viper) *time.Location {
	loc, err := time.LoadLocation(cfg.GetString("server.timezone"))
	if err != nil {
		log.Fatalln("invalid server.timezone", err)
	}

	return loc
}

func newDb(cfg *viper.Viper) *pgxpool.Pool {
	username := cfg.GetString("db.user")
	password := cfg.GetString("db.password")
	host := cfg.GetString("db.host")
	port := cfg.GetInt("db.port")
	database := cfg.GetString("db.name")
	maxConn := cfg.GetInt("db.pool.max")
	minConn := cfg.GetInt("db.pool.min")
	timezone := cfg.GetString("server.timezone")

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?timezone=%s",
		username, password, host, port, database, timezone)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		log.Fatalln(err)
	}

	config.MaxConns = int32(maxConn)
	config.MinConns = int32(minConn)
	config.ConnConfig.Tracer = &otel.PgxCustomTracer{}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalln(err)
	}

	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatalln(err)
	}

	return pool
}

func newRedis(cfg *viper.Viper) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetString("redis.addr"),
		Password: cfg.GetString("redis.password"),
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		log.Fatalln(err)
	}

	return rdb
}

func newNats(viper *viper.Viper) *nats.Conn {
	conn, err := nats.Connect(viper.GetString("nats.addr"))
	if err != nil {
		log.Fatalln(err)
	}

	return conn
}

func newJs(conn *nats.Conn) jetstream.JetStream {
	js, err := jetstream.New(conn)
	if err != nil {
		log.Fatalln(err)
	}

	return js
}

func createStreamWorkQueue(ctx context.Context, js jetstream.JetStream) jetstream.Stream {
	st, err := commonJetstream.CreateQueueStream(ctx, js)
	if err != nil {
		log.Fatalln("failed to create queue stream", err)
	}

	return st
}

// newStore opens the queue store. The returned func releases whatever the
// store holds open.
func newStore(cfg *viper.Viper, natsConn *nats.Conn) (store.Store, func()) {
	driver := storeDriver
	if driver == "" {
		driver = cfg.GetString("store.driver")
	}

	switch driver {
	case storeDriverMemory:
		return memoryStore(), func() {}
	case storeDriverRedis:
		rdb := newRedis(cfg)
		st := store.NewRedisStore(rdb, fanout.NATS{Conn: natsConn}, cfg.GetString("redis.prefix"))

		return st, func() { _ = rdb.Close() }
	default:
		log.Fatalf("unknown store driver %q", driver)
		return nil, nil
	}
}

func newCoordinator(cfg *viper.Viper, st store.Store, publisher contract.Publisher) *queue.Coordinator {
	coordinator, err := queue.NewCoordinator(st, publisher, queue.Options{
		Scheme:           model.Scheme(cfg.GetString("queue.numbering")),
		Atomic:           cfg.GetBool("queue.atomic"),
		CodedMaxAttempts: cfg.GetInt("queue.coded_max_attempts"),
		Location:         newLocation(cfg),
		RolloverWait:     cfg.GetDuration("queue.rollover_wait"),
	})
	if err != nil {
		log.Fatalln("unable to create queue coordinator", err)
	}

	return coordinator
}

func newGate(cfg *viper.Viper, st store.Store) *queue.Gate {
	secret := cfg.GetString("cashier.secret")
	if secret == "" {
		log.Fatalln("cashier.secret is required")
	}

	return &queue.Gate{
		Store:      st,
		DefaultPin: cfg.GetString("cashier.default_pin"),
		Secret:     []byte(secret),
		SessionTTL: cfg.GetDuration("cashier.session_ttl"),
		TimeNow:    time.Now,
	}
}
