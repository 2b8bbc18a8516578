package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"gorm.io/gorm"

	"mealplanner/internal/config"
	"mealplanner/internal/server"
)

// fakeServer blocks in Start until Stop is called, unless startErr is set.
type fakeServer struct {
	startErr error
	stopErr  error

	started chan struct{}
	stopped chan struct{}
}

func newFakeServer(startErr, stopErr error) *fakeServer {
	return &fakeServer{
		startErr: startErr,
		stopErr:  stopErr,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (f *fakeServer) Start() error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Stop() error {
	close(f.stopped)
	return f.stopErr
}

func closed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

type shutdownTrigger int

const (
	noTrigger shutdownTrigger = iota
	signalTrigger
	cancelTrigger
)

type expectation struct {
	code      int
	mock      int
	configure int
	seed      int
	built     bool
	stopped   bool
}

// startup records what run asked of its collaborators.
type startup struct {
	mockCalls      int
	configureCalls int
	seedCalls      int
	seededAdmin    config.AdminConfig
	built          *server.Config
}

func baseConfig(useMock bool) config.Config {
	return config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{URL: "postgres://planner", UseMock: useMock},
		Logging:  config.LoggingConfig{Level: "info"},
		Auth: config.AuthConfig{
			Session:        config.SessionConfig{Lifetime: time.Hour, CookieName: "planner", CookieSecure: true},
			JWT:            config.JWTConfig{Secret: "s3cret", Issuer: "mealplanner", ExpMinutes: 30},
			LoginRateLimit: 4,
			LoginBurst:     2,
			TrustedProxies: []string{"10.0.0.0/8"},
		},
		Admin: config.AdminConfig{Login: "chef", InitialPassword: "first-login"},
	}
}

func TestRun(t *testing.T) {
	database := &gorm.DB{}

	tests := []struct {
		name         string
		cfg          config.Config
		loadErr      error
		levelErr     error
		mockErr      error
		configureErr error
		seedErr      error
		buildErr     error
		server       *fakeServer
		trigger      shutdownTrigger

		want expectation
	}{
		{
			name:    "mock database skips configure and seed",
			cfg:     baseConfig(true),
			server:  newFakeServer(nil, nil),
			trigger: signalTrigger,
			want:    expectation{code: 0, mock: 1, built: true, stopped: true},
		},
		{
			name:    "configured database is seeded with the admin account",
			cfg:     baseConfig(false),
			server:  newFakeServer(nil, nil),
			trigger: signalTrigger,
			want:    expectation{code: 0, configure: 1, seed: 1, built: true, stopped: true},
		},
		{
			name:    "context cancellation stops the server",
			cfg:     baseConfig(false),
			server:  newFakeServer(nil, nil),
			trigger: cancelTrigger,
			want:    expectation{code: 0, configure: 1, seed: 1, built: true, stopped: true},
		},
		{
			name:    "seed failure aborts startup",
			cfg:     baseConfig(false),
			seedErr: errors.New("admin insert failed"),
			want:    expectation{code: 1, configure: 1, seed: 1},
		},
		{
			name:         "database configuration failure aborts before seeding",
			cfg:          baseConfig(false),
			configureErr: errors.New("db connection refused"),
			want:         expectation{code: 1, configure: 1},
		},
		{
			name:    "mock database failure",
			cfg:     baseConfig(true),
			mockErr: errors.New("sqlite unavailable"),
			want:    expectation{code: 1, mock: 1},
		},
		{
			name:     "server build failure",
			cfg:      baseConfig(true),
			buildErr: errors.New("bad session config"),
			want:     expectation{code: 1, mock: 1},
		},
		{
			name:   "listener failure skips stop",
			cfg:    baseConfig(true),
			server: newFakeServer(errors.New("address in use"), nil),
			want:   expectation{code: 1, mock: 1, built: true},
		},
		{
			name:    "graceful shutdown failure",
			cfg:     baseConfig(true),
			server:  newFakeServer(nil, errors.New("drain timeout")),
			trigger: signalTrigger,
			want:    expectation{code: 1, mock: 1, built: true, stopped: true},
		},
		{
			name:     "invalid log level",
			cfg:      baseConfig(true),
			levelErr: errors.New("unknown level"),
			want:     expectation{code: 1},
		},
		{
			name:    "configuration error",
			loadErr: errors.New("unsupported database driver"),
			want:    expectation{code: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := &startup{}
			shutdown := make(chan os.Signal, 1)
			restore := swapDependencies()
			t.Cleanup(restore)

			loadConfigFunc = func() (config.Config, error) { return tt.cfg, tt.loadErr }
			setLogLevelFunc = func(string) error { return tt.levelErr }
			newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
				got.mockCalls++
				if tt.mockErr != nil {
					return nil, tt.mockErr
				}
				return database, nil
			}
			configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
				got.configureCalls++
				if tt.configureErr != nil {
					return nil, tt.configureErr
				}
				return database, nil
			}
			seedDatabase = func(_ context.Context, conn *gorm.DB, admin config.AdminConfig) error {
				got.seedCalls++
				got.seededAdmin = admin
				if conn != database {
					t.Errorf("seed received a different database handle")
				}
				return tt.seedErr
			}
			newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
				if tt.buildErr != nil {
					return nil, tt.buildErr
				}
				got.built = &cfg
				return tt.server, nil
			}
			subscribeShutdownSig = func() (<-chan os.Signal, func()) {
				return shutdown, func() {}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.server != nil && tt.trigger != noTrigger {
				go func() {
					<-tt.server.started
					if tt.trigger == signalTrigger {
						shutdown <- syscall.SIGTERM
						return
					}
					cancel()
				}()
			}

			if code := run(ctx); code != tt.want.code {
				t.Fatalf("run() = %d, want %d", code, tt.want.code)
			}
			if got.mockCalls != tt.want.mock || got.configureCalls != tt.want.configure || got.seedCalls != tt.want.seed {
				t.Fatalf("calls mock=%d configure=%d seed=%d, want %d/%d/%d",
					got.mockCalls, got.configureCalls, got.seedCalls, tt.want.mock, tt.want.configure, tt.want.seed)
			}
			if tt.want.seed > 0 && got.seededAdmin != tt.cfg.Admin {
				t.Fatalf("seeded admin %+v, want %+v", got.seededAdmin, tt.cfg.Admin)
			}
			if (got.built != nil) != tt.want.built {
				t.Fatalf("server built = %t, want %t", got.built != nil, tt.want.built)
			}
			if tt.server != nil && tt.want.built && closed(tt.server.stopped) != tt.want.stopped {
				t.Fatalf("server stopped = %t, want %t", closed(tt.server.stopped), tt.want.stopped)
			}
			if got.built != nil {
				assertServerConfig(t, *got.built, tt.cfg, database)
			}
		})
	}
}

func assertServerConfig(t *testing.T, built server.Config, cfg config.Config, database *gorm.DB) {
	t.Helper()

	if built.Addr != cfg.Server.Addr || built.Database != database {
		t.Fatalf("unexpected server wiring: addr=%q database=%p", built.Addr, built.Database)
	}
	if built.Session.CookieName != cfg.Auth.Session.CookieName || built.Session.Lifetime != cfg.Auth.Session.Lifetime || !built.Session.CookieSecure {
		t.Fatalf("session settings not forwarded: %+v", built.Session)
	}
	if built.JWT != cfg.Auth.JWT {
		t.Fatalf("jwt settings not forwarded: %+v", built.JWT)
	}
	limit := built.LoginLimit
	if limit.PerMinute != cfg.Auth.LoginRateLimit || limit.Burst != cfg.Auth.LoginBurst {
		t.Fatalf("login limit not forwarded: %+v", limit)
	}
	if len(limit.TrustedProxies) != 1 || limit.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("trusted proxies not forwarded: %q", limit.TrustedProxies)
	}
}

func swapDependencies() func() {
	loadConfig, setLevel := loadConfigFunc, setLogLevelFunc
	mockDB, configure, seed := newMockDatabaseFunc, configureDatabase, seedDatabase
	newServer, subscribe := newServerFunc, subscribeShutdownSig
	return func() {
		loadConfigFunc, setLogLevelFunc = loadConfig, setLevel
		newMockDatabaseFunc, configureDatabase, seedDatabase = mockDB, configure, seed
		newServerFunc, subscribeShutdownSig = newServer, subscribe
	}
}
