package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	_ "net/http/pprof"

	"github.com/fahmi-aa/routepack/pkg/engine/routingalgorithm"
	"github.com/fahmi-aa/routepack/pkg/graph"
	"github.com/fahmi-aa/routepack/pkg/logger"
	"github.com/fahmi-aa/routepack/pkg/server/rest"
	"github.com/fahmi-aa/routepack/pkg/server/rest/service"
)

var (
	listenAddr          = flag.String("listenaddr", ":5000", "server listen address")
	packageDir          = flag.String("packages", "./packages", "directory with graph package files")
	logLevel            = flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	nodeCacheSize       = flag.Int("nodecache", graph.DefaultSettings().NodeBlockCacheSize, "node block cache size in blocks")
	geometryCacheSize   = flag.Int("geometrycache", graph.DefaultSettings().GeometryBlockCacheSize, "geometry block cache size in blocks")
	nameCacheSize       = flag.Int("namecache", graph.DefaultSettings().NameBlockCacheSize, "name block cache size in blocks")
	globalNodeCacheSize = flag.Int("globalnodecache", graph.DefaultSettings().GlobalNodeBlockCacheSize, "global node block cache size in blocks")
	rtreeCacheSize      = flag.Int("rtreecache", graph.DefaultSettings().RTreeNodeBlockCacheSize, "r-tree block cache size in blocks")
)

func main() {
	flag.Parse()

	log := logger.GetLogger("engine")
	lvl, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid log level: %v", err)
	}
	logger.SetLogLevel(lvl)

	settings := graph.Settings{
		NodeBlockCacheSize:       *nodeCacheSize,
		GeometryBlockCacheSize:   *geometryCacheSize,
		NameBlockCacheSize:       *nameCacheSize,
		GlobalNodeBlockCacheSize: *globalNodeCacheSize,
		RTreeNodeBlockCacheSize:  *rtreeCacheSize,
	}

	g := graph.NewRoutingGraph(settings)
	defer g.Close()
	if err := g.ImportDirectory(*packageDir); err != nil {
		log.Fatalf("import packages: %v", err)
	}
	if len(g.Packages()) == 0 {
		log.Errorf("no packages imported from %s", *packageDir)
		os.Exit(1)
	}

	finder := routingalgorithm.NewRouteFinder(g)
	navigationSvc := service.NewNavigationService(finder, g)

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)
	reg.MustRegister(rest.NewCacheStatsCollector(g))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rest.PromHTTPMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rest.NavigationRouter(r, navigationSvc)

	log.Infof("listening on %s with %d packages", *listenAddr, len(g.Packages()))
	if err := http.ListenAndServe(*listenAddr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
