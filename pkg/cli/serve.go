package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/getmockd/stubd/internal/pattern"
	"github.com/getmockd/stubd/pkg/admin"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/engine"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/metrics"
	"github.com/getmockd/stubd/pkg/repository"
	stubtls "github.com/getmockd/stubd/pkg/tls"
	"github.com/getmockd/stubd/pkg/transport"
	"github.com/getmockd/stubd/pkg/watch"
)

var _ repository.Observer = (*metrics.Metrics)(nil)

// envPrefix prefixes the environment fallback of every serve flag.
const envPrefix = "STUBD_"

type serveOptions struct {
	data             string
	stubsPort        int
	adminPort        int
	tlsPort          int
	tlsCert          string
	tlsKey           string
	disableTLS       bool
	location         string
	watch            bool
	disableAdmin     bool
	logLevel         string
	logFormat        string
	fetchTimeout     time.Duration
	patternCacheSize int
	patternCacheTTL  time.Duration
	shutdownTimeout  time.Duration
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stubs and admin servers",
	Long: `Load the stubs file and serve it on the stubs port and, over HTTPS, on the
TLS port. The admin API on the
admin port lists, updates and deletes stubs at runtime and exposes /metrics.

Every flag can also be set through the environment as STUBD_<FLAG>, for
example STUBD_STUBS_PORT=9000.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyEnv(cmd.Flags()); err != nil {
			return err
		}
		if serveOpts.data == "" {
			return errors.New("no stubs file given, use --data or STUBD_DATA")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, serveOpts)
	},
}

// applyEnv sets every flag the command line left unset from its STUBD_
// environment variable.
func applyEnv(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		v, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	})
	return errors.Join(errs...)
}

func runServe(ctx context.Context, o serveOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(o.logLevel)
	logCfg.Format = logging.ParseFormat(o.logFormat)
	log := logging.New(logCfg)

	m := metrics.New()
	repo := repository.New(
		repository.WithFetcher(transport.New(
			transport.WithTimeout(o.fetchTimeout),
			transport.WithLogger(log),
		)),
		repository.WithObserver(m),
		repository.WithPatternCache(pattern.New(o.patternCacheSize, o.patternCacheTTL)),
		repository.WithLogger(log),
	)

	parser := config.NewParser(config.WithLogger(log))
	var (
		mu    sync.Mutex
		files []string
	)
	load := func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		res, err := parser.ParseFile(o.data)
		if err != nil {
			return 0, err
		}
		if err := repo.Reset(res.Collection); err != nil {
			return 0, err
		}
		files = res.Files
		return len(res.Collection.Stubs), nil
	}
	reload := func(context.Context) (int, error) {
		n, err := load()
		m.Reloaded(n, err)
		if err != nil {
			log.Warn("reload failed, keeping loaded stubs", "file", o.data, "error", err)
			return 0, err
		}
		m.SetStubs(n)
		log.Info("stubs reloaded", "file", o.data, "stubs", n)
		return n, nil
	}

	n, err := load()
	if err != nil {
		return err
	}
	m.SetStubs(n)
	log.Info("stubs loaded", "file", o.data, "stubs", n, "proxyConfigs", len(repo.ProxyConfigs()))

	handler := engine.NewHandler(repo, engine.WithHandlerLogger(log))
	var servers []*engine.Server
	start := func(s *engine.Server) error {
		if err := s.Start(); err != nil {
			for _, started := range servers {
				_ = started.Stop(context.Background())
			}
			return err
		}
		servers = append(servers, s)
		return nil
	}

	if err := start(engine.NewServer(
		net.JoinHostPort(o.location, strconv.Itoa(o.stubsPort)),
		handler,
		engine.WithName("stubs"),
		engine.WithLogger(log),
	)); err != nil {
		return err
	}

	if !o.disableTLS {
		certCfg := stubtls.DefaultCertificateConfig()
		if o.location != "0.0.0.0" && o.location != "::" {
			certCfg.Hosts = append(certCfg.Hosts, o.location)
		}
		tlsCfg, err := stubtls.ServerConfig(o.tlsCert, o.tlsKey, certCfg)
		if err != nil {
			return err
		}
		if err := start(engine.NewServer(
			net.JoinHostPort(o.location, strconv.Itoa(o.tlsPort)),
			handler,
			engine.WithName("stubs-tls"),
			engine.WithTLS(tlsCfg),
			engine.WithLogger(log),
		)); err != nil {
			return err
		}
	}

	if !o.disableAdmin {
		api := admin.New(repo,
			admin.WithParser(parser, filepath.Dir(o.data)),
			admin.WithReload(reload),
			admin.WithMetrics(m.Handler()),
			admin.WithLogger(log),
		)
		if err := start(engine.NewServer(
			net.JoinHostPort(o.location, strconv.Itoa(o.adminPort)),
			api.Handler(),
			engine.WithName("admin"),
			engine.WithLogger(log),
		)); err != nil {
			return err
		}
	}

	if o.watch {
		lister := func() []string {
			mu.Lock()
			defer mu.Unlock()
			return watchedFiles(files, repo)
		}
		w := watch.New(lister, func(ctx context.Context) error {
			_, err := reload(ctx)
			return err
		}, watch.WithLogger(log))
		if err := w.Start(ctx); err != nil {
			log.Warn("hot reload disabled", "error", err)
		}
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.shutdownTimeout)
	defer cancel()
	var errs []error
	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// watchedFiles lists the configuration files of the last successful load
// and every external body file of the loaded stubs.
func watchedFiles(files []string, repo *repository.Repository) []string {
	out := append([]string(nil), files...)
	for _, f := range repo.ExternalFiles() {
		out = append(out, f.Path)
	}
	return out
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.data, "data", "d", "", "Stubs YAML file")
	f.IntVar(&serveOpts.stubsPort, "stubs-port", 8882, "Port of the stubs server")
	f.IntVar(&serveOpts.adminPort, "admin-port", 8889, "Port of the admin API")
	f.IntVar(&serveOpts.tlsPort, "tls-port", 7443, "Port of the HTTPS stubs server")
	f.StringVar(&serveOpts.tlsCert, "tls-cert", "", "PEM certificate of the HTTPS stubs server (generated when empty)")
	f.StringVar(&serveOpts.tlsKey, "tls-key", "", "PEM private key matching --tls-cert")
	f.BoolVar(&serveOpts.disableTLS, "disable-tls", false, "Do not start the HTTPS stubs server")
	f.StringVar(&serveOpts.location, "location", "0.0.0.0", "Address both servers bind to")
	f.BoolVar(&serveOpts.watch, "watch", false, "Reload stubs when the stubs file, its includes or body files change")
	f.BoolVar(&serveOpts.disableAdmin, "disable-admin", false, "Do not start the admin API")
	f.StringVar(&serveOpts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&serveOpts.logFormat, "log-format", "text", "Log format (text, json)")
	f.DurationVar(&serveOpts.fetchTimeout, "fetch-timeout", 30*time.Second, "Timeout of recording and proxy requests")
	f.IntVar(&serveOpts.patternCacheSize, "pattern-cache-size", 500, "Maximum number of compiled regular expressions kept")
	f.DurationVar(&serveOpts.patternCacheTTL, "pattern-cache-ttl", time.Hour, "Lifetime of a compiled regular expression")
	f.DurationVar(&serveOpts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "Time allowed for in-flight requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}
