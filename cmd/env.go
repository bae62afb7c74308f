package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/audit"
	"github.com/sells-group/grc-cli/internal/evidence"
	"github.com/sells-group/grc-cli/internal/metrics"
	"github.com/sells-group/grc-cli/internal/project"
	"github.com/sells-group/grc-cli/internal/registry"
	"github.com/sells-group/grc-cli/internal/resilience"
	"github.com/sells-group/grc-cli/internal/store"
	"github.com/sells-group/grc-cli/internal/taxonomy"
	"github.com/sells-group/grc-cli/internal/tracing"
)

const tracingFlushTimeout = 5 * time.Second

// appEnv holds the initialized store, catalogs and service needed by the
// serve and projects commands.
type appEnv struct {
	Store    store.Store
	Taxonomy *taxonomy.Taxonomy
	Packs    *registry.PackRegistry
	Metrics  *metrics.Metrics
	Service  *project.Service

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEnv validates config for mode, opens and migrates the store, loads the
// catalogs and builds the project service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{Metrics: metrics.New()}

	tp, err := tracing.NewProvider(cfg.Tracing, os.Stderr)
	if err != nil {
		return nil, err
	}
	shutdownTracing := tracing.Install(tp)
	env.closers = append(env.closers, func() {
		flush, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		if err := shutdownTracing(flush); err != nil {
			zap.L().Warn("tracing: flush failed", zap.Error(err))
		}
	})

	st, err := initStore(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = st
	env.closers = append(env.closers, func() { _ = st.Close() })

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env.Taxonomy, err = taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Packs = registry.NewPackRegistry(cfg.Packs.Dir)

	locker, err := initLocker(ctx, env)
	if err != nil {
		env.Close()
		return nil, err
	}

	recorder, err := initAudit(env)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Service = project.NewService(project.Config{GeneratorVersion: cfg.Generator.Version}, project.Deps{
		Store:    st,
		Taxonomy: env.Taxonomy,
		Packs:    env.Packs,
		Evidence: evidence.NewStore(cfg.Evidence.Dir, cfg.Server.MaxUploadBytes()),
		Audit:    recorder,
		Locker:   locker,
		Metrics:  env.Metrics,
		Tracer:   tp,
	})
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "grc.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initLocker returns nil for the in-process default.
func initLocker(ctx context.Context, env *appEnv) (project.Locker, error) {
	if cfg.Lock.Driver != "redis" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "redis: ping %s", cfg.Lock.RedisAddr)
	}
	env.closers = append(env.closers, func() { _ = client.Close() })

	zap.L().Info("using redis project lock", zap.String("addr", cfg.Lock.RedisAddr))
	return project.NewRedisLocker(client, time.Duration(cfg.Lock.TTLSecs)*time.Second), nil
}

// initAudit always records to the store; Kafka is an optional secondary sink.
func initAudit(env *appEnv) (audit.Recorder, error) {
	primary := audit.NewStoreRecorder(env.Store)
	if !cfg.Audit.KafkaEnabled() {
		return primary, nil
	}

	retry := resilience.PolicyFromConfig(cfg.Audit.MaxAttempts, cfg.Audit.InitialBackoffMs, cfg.Audit.MaxBackoffMs)
	retry.OnRetry = resilience.LogRetries("kafka", "publish audit")

	pub, err := audit.NewKafkaPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic,
		audit.WithRetry(retry),
		audit.WithCircuitBreaker(resilience.BreakerFromConfig(cfg.Audit.CircuitFailureThreshold, cfg.Audit.CircuitResetSecs)),
	)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, pub.Close)

	zap.L().Info("publishing audit entries to kafka",
		zap.Strings("brokers", cfg.Audit.KafkaBrokers),
		zap.String("topic", cfg.Audit.KafkaTopic),
	)
	return audit.NewFanout(primary, pub), nil
}
