package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/chat"
	"github.com/matthewbaird/estatein/internal/config"
	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/docstore"
	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/eventbus"
	"github.com/matthewbaird/estatein/internal/feed"
	"github.com/matthewbaird/estatein/internal/handler"
	"github.com/matthewbaird/estatein/internal/media"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/view"
	"github.com/matthewbaird/estatein/internal/wire"
)

// publishingStore is a document store that reports committed changes.
type publishingStore interface {
	docstore.Store
	SetPublisher(p event.Publisher)
}

// App is the assembled service.
type App struct {
	Conf     *config.Config
	Store    docstore.Store
	Service  *crud.Service
	Bus      *eventbus.Bus
	Hub      *feed.Hub
	Sessions *auth.Manager
	Handler  http.Handler

	closers []io.Closer
	started bool
}

// Build wires the store, change bus, live feed, uploader, sessions and
// assistant from conf.
func Build(ctx context.Context, conf *config.Config) (*App, error) {
	app := &App{Conf: conf}
	ok := false
	defer func() {
		if !ok {
			app.closeAll()
		}
	}()

	profile := "unsigned_upload"
	if len(conf.MediaProfiles) > 0 {
		profile = conf.MediaProfiles[0]
	}
	reg, err := schema.Load(profile)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, conf)
	if err != nil {
		return nil, err
	}
	if c, isCloser := store.(io.Closer); isCloser {
		app.closers = append(app.closers, c)
	}
	app.Store = store

	app.Bus = eventbus.New(conf.EventBufferSize)
	app.Hub = feed.NewHub(store)
	app.Bus.Subscribe("feed", app.Hub)
	app.Bus.Subscribe("log", eventbus.NewLogConsumer())
	app.Bus.Subscribe("metrics", eventbus.NewMetricsConsumer())
	store.SetPublisher(app.Bus)

	uploader, mediaDir, err := openUploader(ctx, conf)
	if err != nil {
		return nil, err
	}
	app.Service = crud.NewService(reg, store, media.Instrumented(uploader))

	sessStore, err := openSessionStore(ctx, conf)
	if err != nil {
		return nil, err
	}
	if c, isCloser := sessStore.(io.Closer); isCloser {
		app.closers = append(app.closers, c)
	}
	app.Sessions = auth.NewManager(sessStore, auth.Credentials{
		Username: conf.AdminUsername,
		Password: conf.AdminPassword,
	}, conf.SessionIdleTimeout)

	var completer chat.Completer
	if conf.ChatAPIKey != "" {
		completer = chat.NewOpenAICompleter(conf.ChatAPIKey, conf.ChatBaseURL, conf.ChatModel)
	} else {
		log.Info().Msg("no chat api key configured, assistant answers from the keyword table only")
	}
	assistant := chat.NewAssistant(chat.DefaultRules, completer, chat.DefaultSite)

	views, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}
	origins := lo.FilterMap(conf.CORSOrigins, func(o string, _ int) (string, bool) {
		u, err := url.Parse(o)
		if o == "*" || err != nil || u.Host == "" {
			return "", false
		}
		return u.Host, true
	})
	app.Handler = NewRouter(handler.Deps{
		Service:   app.Service,
		Sessions:  app.Sessions,
		Views:     views,
		Assistant: assistant,
		Live:      wire.NewHandler(app.Service, app.Hub, assistant, origins),
	}, RouterOptions{CORSOrigins: conf.CORSOrigins, MediaDir: mediaDir})

	ok = true
	return app, nil
}

// Start runs the change bus consumer.
func (a *App) Start(ctx context.Context) {
	a.Bus.Start(ctx)
	a.started = true
}

// Close stops the live feed and the bus and releases the store and
// session connections.
func (a *App) Close() error {
	a.Hub.Close()
	if a.started {
		a.Bus.Stop()
	}
	return a.closeAll()
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, conf *config.Config) (publishingStore, error) {
	if conf.DatabaseURL == "" {
		log.Warn().Msg("no database configured, documents are kept in memory")
		return docstore.NewMemoryStore(), nil
	}
	s, err := docstore.OpenSQLite(ctx, conf.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	return s, nil
}

// openUploader returns the uploader and, for local storage, the directory
// the router must serve.
func openUploader(ctx context.Context, conf *config.Config) (media.Uploader, string, error) {
	if conf.MediaEnabled() {
		u, err := media.NewS3UploaderFromConfig(ctx, conf)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", conf.MediaBucket).Msg("uploading media to bucket")
		return u, "", nil
	}
	u, err := media.NewDiskUploader(conf.MediaDir, MediaPrefix, media.NewProfiles(conf.MediaProfiles...))
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("dir", u.Dir()).Msg("storing media on local disk")
	return u, u.Dir(), nil
}

func openSessionStore(ctx context.Context, conf *config.Config) (auth.Store, error) {
	if conf.RedisURL == "" {
		return auth.NewMemoryStore(), nil
	}
	s, err := auth.NewRedisStore(ctx, conf.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connecting session store: %w", err)
	}
	return s, nil
}
