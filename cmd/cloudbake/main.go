// Command cloudbake simulates the frame loop of several skies sharing one
// cloud-layer cache and prints the cache statistics at the end.
//
//	cloudbake -config scene.yaml -frames 120 -renderers 3 -report json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/bakestore"
	"github.com/unkn0wn-root/bakecache/genstore"
	asynchook "github.com/unkn0wn-root/bakecache/hooks/async"
	"github.com/unkn0wn-root/bakecache/internal/config"
	"github.com/unkn0wn-root/bakecache/internal/report"
	logruslog "github.com/unkn0wn-root/bakecache/log/logrus"
	sloglog "github.com/unkn0wn-root/bakecache/log/slog"
	zaplog "github.com/unkn0wn-root/bakecache/log/zap"
	pr "github.com/unkn0wn-root/bakecache/provider"
	bcprov "github.com/unkn0wn-root/bakecache/provider/bigcache"
	kprov "github.com/unkn0wn-root/bakecache/provider/kioshun"
	redisprov "github.com/unkn0wn-root/bakecache/provider/redis"
	rprov "github.com/unkn0wn-root/bakecache/provider/ristretto"
	"github.com/unkn0wn-root/bakecache/sloghooks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "cloudbake:", err)
		os.Exit(1)
	}
}

type flags struct {
	config    string
	frames    int
	renderers int
	format    string
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("cloudbake", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "scene file (.yaml, .yml or .toml); built-in defaults when empty")
	fs.IntVar(&f.frames, "frames", -1, "frames to simulate; overrides frames.count")
	fs.IntVar(&f.renderers, "renderers", 3, "number of skies sharing the cache")
	fs.StringVar(&f.format, "report", "json", "report format: "+strings.Join(report.Formats, "|"))
	fs.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error; overrides log.level")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.renderers < 1 {
		return f, fmt.Errorf("-renderers %d: must be >= 1", f.renderers)
	}
	known := false
	for _, n := range report.Formats {
		known = known || n == f.format
	}
	if !known {
		return f, fmt.Errorf("-report %q: unknown format", f.format)
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if f.config != "" {
		if cfg, err = config.Load(f.config); err != nil {
			return err
		}
	}
	if f.frames >= 0 {
		cfg.Frames.Count = f.frames
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}

	log, sync, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer sync()

	var hooks bakecache.Hooks = bakecache.NopHooks{}
	if cfg.Log.Hooks {
		sl := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		ah := asynchook.New(sloghooks.New(sl, sloghooks.Options{SharedEvery: 100, ReuseEvery: 10}), 1, 1024)
		defer ah.Close()
		hooks = ah
	}

	store, err := newStore(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("bake store: %w", err)
	}
	if store != nil {
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(cctx); err != nil {
				log.Warn("close bake store", bakecache.Fields{"err": err})
			}
		}()
	}

	rep, err := simulate(ctx, cfg, f.renderers, store, log, hooks)
	if err != nil {
		return err
	}

	out, err := report.Encode(rep, f.format)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(out); err != nil {
		return err
	}
	if f.format == "json" {
		_, err = io.WriteString(stdout, "\n")
	}
	return err
}

// newLogger builds the configured adapter. The returned func flushes it.
func newLogger(c config.Log, w io.Writer) (bakecache.Logger, func(), error) {
	switch c.Adapter {
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		lvl, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, nil, err
		}
		l.SetLevel(lvl)
		return logruslog.New(l), func() {}, nil
	case "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, nil, err
		}
		l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
		return sloglog.New(l), func() {}, nil
	default:
		lvl, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, nil, err
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(lvl)
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zl := zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(zc.EncoderConfig), zapcore.AddSync(w), zc.Level))
		return zaplog.New(zl), func() { _ = zl.Sync() }, nil
	}
}

// newStore returns nil when persistence is disabled.
func newStore(ctx context.Context, c config.Store, log bakecache.Logger) (*bakestore.Store, error) {
	if c.Backend == "" {
		return nil, nil
	}
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return nil, err
	}

	var (
		p   pr.Provider
		gen genstore.GenStore
	)
	switch c.Backend {
	case "ristretto":
		maxCost := c.Ristretto.MaxCostMB << 20
		p, err = rprov.New(rprov.Config{
			NumCounters: 10_000,
			MaxCost:     maxCost,
			Synchronous: true,
		})
	case "bigcache":
		var life time.Duration
		if life, err = time.ParseDuration(c.Bigcache.LifeWindow); err != nil {
			return nil, err
		}
		p, err = bcprov.New(ctx, bcprov.Config{
			LifeWindow:         life,
			MaxEntrySize:       8 << 20,
			HardMaxCacheSizeMB: c.Bigcache.HardMaxMB,
		})
	case "kioshun":
		p, err = kprov.New(kprov.Config{
			MaxItems:        c.Kioshun.MaxItems,
			CleanupInterval: time.Minute,
		})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: c.Redis.Addr, DB: c.Redis.DB, Password: c.Redis.Password})
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", c.Redis.Addr, err)
		}
		// generations live next to the bakes so replicas agree on staleness
		gen = genstore.NewRedisGenStore(rdb, c.Namespace, 24*time.Hour)
		p, err = redisprov.New(redisprov.Config{Client: rdb, CloseClient: true})
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}
	return bakestore.New(bakestore.Options{
		Namespace: c.Namespace,
		Provider:  p,
		GenStore:  gen,
		TTL:       ttl,
		Logger:    log,
	})
}
