package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/CodedInternet/gowalker/comms"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "main"})

type EnvConfig struct {
	JWT_ISSUER string `env:"RESIN_DEVICE_UUID" envDefault:"DEV"`
	RESIN      bool   `env:"RESIN" envDefault:"0"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	HTMLDIR    string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	DB         *storm.DB
	Loop       comms.Loop
	Conductor  *comms.Conductor
	Simulated  bool
}

var (
	ENV = new(EnvConfig)
)

func dataPath(name string) (string, error) {
	if ENV.RESIN {
		return filepath.Join("/data", name), nil
	}
	path, err := filepath.Abs(filepath.Join(ENV.SRCDIR, "tmp", name))
	if err != nil {
		return "", err
	}
	return path, os.MkdirAll(filepath.Dir(path), 0755)
}

func configPath() (string, error) {
	if ENV.RESIN {
		return "/data/walker.yaml", nil
	}
	return filepath.Abs(filepath.Join(ENV.SRCDIR, "walker.yaml"))
}

// The web deployment always drives the tabular engine.
func loadConfig() (cfg onboard.Config, err error) {
	path, err := configPath()
	if err != nil {
		return
	}
	cfg, err = onboard.LoadConfig(path)
	if os.IsNotExist(errors.Cause(err)) {
		log.WithField("path", path).Warn("no config file, using defaults")
		cfg, err = onboard.DefaultConfig(), nil
	}
	if err != nil {
		return
	}
	if cfg.Deployment != onboard.Tabular {
		log.WithField("deployment", cfg.Deployment).Warn("web deployment runs the tabular engine")
		cfg.Deployment = onboard.Tabular
	}
	return
}

func main() {
	simulated := flag.Bool("sim", false, "Run against a simulated servo bus and battery")
	port := flag.String("port", "0.0.0.0:80", "Specify the ip:port to listen on")
	flag.Parse()

	if err := env.Parse(ENV); err != nil {
		log.WithError(err).Fatal("unable to read environment")
	}
	if ENV.DEBUG {
		logrus.SetLevel(logrus.DebugLevel)
	}
	ENV.Simulated = *simulated

	dbFile, err := dataPath("walker.db")
	if err != nil {
		log.WithError(err).Fatal("unable to resolve database path")
	}
	db, err := openDb(dbFile)
	if err != nil {
		log.WithError(err).Fatal("unable to open database")
	}
	ENV.DB = db
	defer ENV.DB.Close()

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("unable to load config")
	}

	hw, err := onboard.OpenHardware(cfg, ENV.Simulated)
	if err != nil {
		log.WithError(err).Fatal("unable to open servo hardware")
	}
	battery := onboard.OpenBattery(cfg.Battery, ENV.Simulated)
	robot, err := onboard.NewRobot(cfg, hw, calibration.NewStormStore(ENV.DB), battery)
	if err != nil {
		log.WithError(err).Fatal("unable to build robot")
	}
	defer robot.Close()

	loop := onboard.NewLoop(robot)
	ENV.Loop = loop
	ENV.Conductor = comms.NewConductor(loop)
	robot.SetSequenceCallback(ENV.Conductor.SequenceComplete)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go battery.Run(ctx)
	go ENV.Conductor.RunStatus(ctx, cfg.StatusInterval())
	stopped := make(chan error, 1)
	go func() { stopped <- loop.Run(ctx) }()

	go newShell(ctx, loop).Start()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", apiRoutes)

	r.Route("/ws", func(r chi.Router) {
		if ENV.RESIN && !ENV.DEBUG {
			r.Use(ValidateJWT)
		} else {
			log.Warn("running in debug mode, socket authentication disabled")
		}
		r.Get("/control", ENV.Conductor.ControlHandler)
		r.Get("/signal", comms.NewWebRTC(ENV.Conductor, comms.ICEServers(ctx)).SignalHandler)
	})

	FileServer(r, "/", http.Dir(ENV.HTMLDIR))

	srv := &http.Server{Addr: *port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		srv.Shutdown(shutdown)
	}()

	log.WithFields(logrus.Fields{
		"addr":    *port,
		"chassis": cfg.Chassis,
		"sim":     ENV.Simulated,
	}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("server stopped")
		cancel()
	}

	if err := <-stopped; err != nil && err != context.Canceled {
		log.WithError(err).Warn("control loop stopped")
	}
	fmt.Println("parked, bye")
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&Operator{}); err != nil {
		return nil, err
	}

	return
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
