package gnocker

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gofiber/fiber"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockcycle/datasource"
	"github.com/zerbitx/gnockcycle/delay"
	"github.com/zerbitx/gnockcycle/dispatch"
	"github.com/zerbitx/gnockcycle/persist"
	"github.com/zerbitx/gnockcycle/registry"
	"github.com/zerbitx/gnockcycle/spec"
)

type (
	// Gnocker serves registered mocks and the admin API that manages them
	Gnocker struct {
		app    *fiber.App
		tlsApp *fiber.App

		store      *registry.Store
		loader     *datasource.Loader
		persister  *persist.Manager
		dispatcher *dispatch.Dispatcher

		adminBasePath string
		staticDir     string
		logger        logrus.FieldLogger
		host          string
		port          int
		tlsPort       int
		certFile      string
		keyFile       string

		ctx    context.Context
		cancel context.CancelFunc

		mu         sync.Mutex
		tlsStarted bool
	}

	config struct {
		host          string
		port          int
		tlsPort       int
		certFile      string
		keyFile       string
		adminBasePath string
		staticDir     string
		baseDir       string
		dataDir       string
		snapshotPath  string
		logger        logrus.FieldLogger
		jitter        dispatch.Jitter
	}

	// Option is a function that can modify a default config
	Option func(c *config)
)

// New returns a Gnocker with an empty registry, serving HTTP on 0.0.0.0:3000 and HTTPS on 3443
// when a key pair is available
func New(options ...Option) *Gnocker {
	c := &config{
		host:          "0.0.0.0",
		port:          3000,
		tlsPort:       3443,
		certFile:      "cert.pem",
		keyFile:       "key.pem",
		adminBasePath: "/_admin",
		baseDir:       ".",
		dataDir:       "data",
		snapshotPath:  "mocks.json",
		logger:        logrus.StandardLogger(),
	}

	for _, applyOption := range options {
		applyOption(c)
	}

	if c.jitter == nil {
		c.jitter = delay.New()
	}

	c.adminBasePath = strings.TrimSuffix(c.adminBasePath, "/")
	if c.adminBasePath == "" {
		c.adminBasePath = "/_admin"
	}

	settings := &fiber.Settings{
		ServerHeader:          "GnockCycle",
		DisableStartupMessage: true,
	}

	store := registry.New()
	loader := datasource.New(c.baseDir, c.dataDir)
	ctx, cancel := context.WithCancel(context.Background())

	g := &Gnocker{
		app:           fiber.New(settings),
		tlsApp:        fiber.New(settings),
		store:         store,
		loader:        loader,
		persister:     persist.New(c.snapshotPath, loader, c.logger),
		dispatcher:    dispatch.New(store, c.jitter, dispatch.WithLogger(c.logger)),
		adminBasePath: c.adminBasePath,
		staticDir:     c.staticDir,
		logger:        c.logger,
		host:          c.host,
		port:          c.port,
		tlsPort:       c.tlsPort,
		certFile:      c.certFile,
		keyFile:       c.keyFile,
		ctx:           ctx,
		cancel:        cancel,
	}

	g.routes(g.app)
	g.routes(g.tlsApp)

	return g
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHost sets the host
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithPort sets the HTTP port
func WithPort(port int) Option {
	return func(c *config) {
		c.port = port
	}
}

// WithTLSPort sets the HTTPS port
func WithTLSPort(port int) Option {
	return func(c *config) {
		c.tlsPort = port
	}
}

// WithTLSFiles sets the certificate and key for the HTTPS listener
func WithTLSFiles(certFile, keyFile string) Option {
	return func(c *config) {
		c.certFile = certFile
		c.keyFile = keyFile
	}
}

// WithAdminBasePath sets the prefix the admin API lives under
func WithAdminBasePath(basePath string) Option {
	return func(c *config) {
		c.adminBasePath = basePath
	}
}

// WithStaticDir serves a dashboard from dir at /
func WithStaticDir(dir string) Option {
	return func(c *config) {
		c.staticDir = dir
	}
}

// WithDataDirs sets where data source references resolve from and where uploads are stored,
// relative to baseDir
func WithDataDirs(baseDir, dataDir string) Option {
	return func(c *config) {
		c.baseDir = baseDir
		c.dataDir = dataDir
	}
}

// WithSnapshot sets the snapshot file mocks are persisted to
func WithSnapshot(path string) Option {
	return func(c *config) {
		c.snapshotPath = path
	}
}

// WithJitter overrides the delay simulator
func WithJitter(j dispatch.Jitter) Option {
	return func(c *config) {
		c.jitter = j
	}
}

// Restore hydrates the registry from the snapshot, then registers any seed records
func (g *Gnocker) Restore(seed []spec.Record) error {
	if _, err := g.persister.Hydrate(g.store); err != nil {
		return err
	}

	for _, rec := range seed {
		if _, err := g.Register(rec); err != nil {
			return fmt.Errorf("failed to register seed %s %w", spec.Key(rec.Method, rec.Path), err)
		}
	}

	return nil
}

// Register builds a mock from rec and activates it, replacing any mock with the same key.
// A data source that can't be loaded leaves the mock without rows. A *persist.Error means the
// mock is live but the snapshot is stale.
func (g *Gnocker) Register(rec spec.Record) (*spec.Mock, error) {
	mock, err := persist.Build(rec, g.loader)
	if mock == nil {
		return nil, err
	}

	if err != nil {
		g.logger.WithError(err).WithField("key", mock.Key()).Warn("data source unavailable, registering without rows")
	}

	g.store.Add(mock)

	g.logger.WithFields(logrus.Fields{
		"key":  mock.Key(),
		"id":   mock.ID,
		"rows": mock.Stats().Rows,
	}).Info("registered")

	return mock, g.persister.Flush(g.store.List())
}

// Remove deletes the mock under key, if there is one, and persists the registry
func (g *Gnocker) Remove(key string) error {
	if g.store.Remove(key) {
		g.logger.WithField("key", key).Info("removed")
	}

	return g.persister.Flush(g.store.List())
}

// Mocks lists the registered mocks in registration order
func (g *Gnocker) Mocks() []*spec.Mock {
	return g.store.List()
}

// App is the plain HTTP application
func (g *Gnocker) App() *fiber.App {
	return g.app
}

// Start serves HTTP, and HTTPS when the key pair loads. It returns when either listener stops.
func (g *Gnocker) Start() error {
	errc := make(chan error, 2)

	go func() {
		g.logger.WithFields(logrus.Fields{"host": g.host, "port": g.port}).Info("http")
		errc <- g.app.Listen(fmt.Sprintf("%s:%d", g.host, g.port))
	}()

	if tlsConfig := g.tlsConfig(); tlsConfig != nil {
		g.mu.Lock()
		g.tlsStarted = true
		g.mu.Unlock()

		go func() {
			g.logger.WithFields(logrus.Fields{"host": g.host, "port": g.tlsPort}).Info("https")
			errc <- g.tlsApp.Listen(fmt.Sprintf("%s:%d", g.host, g.tlsPort), tlsConfig)
		}()
	}

	return <-errc
}

func (g *Gnocker) tlsConfig() *tls.Config {
	if g.certFile == "" || g.keyFile == "" {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(g.certFile, g.keyFile)
	if err != nil {
		if os.IsNotExist(err) {
			g.logger.WithField("cert", g.certFile).Info("no key pair, https disabled")
		} else {
			g.logger.WithError(err).Error("https failed")
		}
		return nil
	}

	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

// Shutdown stops the listeners, releases requests still waiting out a delay and writes a final snapshot
func (g *Gnocker) Shutdown() error {
	g.cancel()

	if shutdownErr := g.app.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("failed to shutdown app %w", shutdownErr)
	}

	g.mu.Lock()
	tlsStarted := g.tlsStarted
	g.mu.Unlock()

	if tlsStarted {
		if shutdownErr := g.tlsApp.Shutdown(); shutdownErr != nil {
			return fmt.Errorf("failed to shutdown tls app %w", shutdownErr)
		}
	}

	return g.persister.Flush(g.store.List())
}
