package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"casestudy/internal/agent"
	"casestudy/internal/config"
	"casestudy/internal/infra/arcade"
	"casestudy/internal/infra/chrome"
	"casestudy/internal/infra/cohere"
	"casestudy/internal/infra/logging"
	"casestudy/internal/infra/postgres"
	"casestudy/internal/mail"
	"casestudy/internal/rag"
	"casestudy/internal/render"
	"casestudy/internal/search"
	"casestudy/internal/tokens"
	"casestudy/internal/tools"
)

const mmPerInch = 25.4

// services is everything built from the config. Close releases it all.
type services struct {
	Tools  *tools.Set
	Agent  *agent.Assistant
	RAG    *rag.Service
	Pool   *chrome.Pool
	Tokens *tokens.Cache

	closers []func()
}

func (s *services) onClose(fn func()) { s.closers = append(s.closers, fn) }

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// ensureLogDir creates the parent directory of a log file path.
func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func initLogging(cfg config.Config) {
	if err := ensureLogDir(cfg.Logger.File); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create log directory: %v\n", err)
		cfg.Logger.File = ""
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)
}

// newRenderer returns the configured renderer and, for the chrome engine
// with pooling, the tab pool behind it.
func newRenderer(cfg config.Config) (*render.Renderer, *chrome.Pool, error) {
	rc := render.Config{
		BaseDir:  cfg.Render.BaseDir,
		Author:   cfg.Render.Author,
		Engine:   render.Engine(cfg.Render.Engine),
		Paper:    cfg.PDF.DefaultPaper,
		MarginMM: cfg.PDF.Margin * mmPerInch,
		Fonts: render.Fonts{
			Regular: cfg.Render.FontRegular,
			Bold:    cfg.Render.FontBold,
			Italic:  cfg.Render.FontItalic,
		},
	}
	if rc.Engine != render.EngineChrome {
		return render.New(rc), nil, nil
	}

	var pool *chrome.Pool
	if cfg.PDF.ChromePoolSize > 0 {
		p, err := chrome.NewPool(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("chrome pool: %w", err)
		}
		pool = p
	}
	rc.Printer = chrome.NewPrinter(pool, cfg)
	return render.New(rc), pool, nil
}

func newArcade(cfg config.Config) *arcade.Client {
	return arcade.New(arcade.Options{
		BaseURL: cfg.Arcade.BaseURL,
		APIKey:  cfg.Arcade.APIKey,
		UserID:  cfg.Arcade.UserID,
		Timeout: cfg.Arcade.Timeout,
		Retries: 2,
	})
}

func newSearchCache(cfg config.Config) (*search.Cache, *redis.Client) {
	if !cfg.Cache.SearchCacheEnabled || cfg.Cache.RedisHost == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.SearchCacheDB,
	})
	return search.NewCache(rdb, cfg.Cache.SearchCacheTTL), rdb
}

func newRAG(ctx context.Context, cfg config.Config) (*rag.Service, *postgres.VectorStore, error) {
	store, err := postgres.NewVectorStore(ctx, cfg.RAG.DSN, cfg.RAG.Table, cfg.RAG.Dimension)
	if err != nil {
		return nil, nil, err
	}
	co := cohere.New(cohere.Options{
		BaseURL:     cfg.Cohere.BaseURL,
		APIKey:      cfg.Cohere.APIKey,
		EmbedModel:  cfg.Cohere.EmbedModel,
		RerankModel: cfg.Cohere.RerankModel,
		Dimension:   cfg.RAG.Dimension,
		Timeout:     cfg.Cohere.Timeout,
		Retries:     2,
	})
	svc := rag.NewService(co, co, store, rag.Options{
		DefaultLimit: cfg.RAG.DefaultLimit,
		RerankTopK:   cfg.RAG.RerankTopK,
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
	})
	return svc, store, nil
}

func newAssistant(cfg config.Config, set *tools.Set) *agent.Assistant {
	return agent.New(agent.Config{
		BaseURL:  cfg.Agent.BaseURL,
		APIKey:   cfg.Agent.APIKey,
		Model:    cfg.Agent.Model,
		MaxTurns: cfg.Agent.MaxTurns,
	}, set.FunctionTools())
}

// startTokens loads the API keys once and keeps reloading them until ctx is
// done. A failed first load leaves the cache not ready, which auth reports
// as 503.
func startTokens(ctx context.Context, cfg config.Config, s *services) {
	db := postgres.NewDB()
	s.onClose(func() { _ = db.Close() })

	cache := tokens.NewCache()
	reloader := tokens.NewReloader(postgres.NewTokenRepository(db, cfg.Auth.PostgresDSN), cache, cfg.Auth.ReloadInterval)
	if err := reloader.LoadOnce(ctx); err != nil {
		logging.Error("Failed to load API tokens", "error", err)
	}
	reloader.Start(ctx)
	s.Tokens = cache
}

// buildServices wires every enabled feature. A failure to reach an optional
// backend disables that feature with a log line instead of failing startup.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	if err := cfg.Require(); err != nil {
		return nil, err
	}
	s := &services{Tools: &tools.Set{}}

	r, pool, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}
	s.Tools.Renderer = r
	if pool != nil {
		s.Pool = pool
		s.onClose(pool.Close)
	}

	if cfg.Search.Enabled || cfg.Mail.Enabled {
		ac := newArcade(cfg)
		if cfg.Search.Enabled {
			cache, rdb := newSearchCache(cfg)
			if rdb != nil {
				s.onClose(func() { _ = rdb.Close() })
			}
			s.Tools.Searcher = search.NewService(ac, cache, cfg.Search.ToolName, cfg.Search.DefaultResults)
		}
		if cfg.Mail.Enabled {
			s.Tools.Mailer = mail.NewService(ac, cfg.Mail.ToolName)
		}
	}

	if cfg.RAG.Enabled {
		svc, store, err := newRAG(ctx, cfg)
		if err != nil {
			logging.Error("Case study retrieval disabled", "error", err)
		} else {
			s.RAG = svc
			s.Tools.Retriever = svc
			s.onClose(store.Close)
		}
	}

	if cfg.Auth.Enabled {
		startTokens(ctx, cfg, s)
	}

	if cfg.Agent.Enabled {
		s.Agent = newAssistant(cfg, s.Tools)
	}
	return s, nil
}

var errNoInput = errors.New("no input given")
