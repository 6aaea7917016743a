package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cwrk-planet/chatsync/config"
	"github.com/cwrk-planet/chatsync/internal/api"
	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/identity"
	serverhttp "github.com/cwrk-planet/chatsync/internal/server/http"
	"github.com/cwrk-planet/chatsync/internal/session"
	"github.com/cwrk-planet/chatsync/internal/store"
	httpx "github.com/cwrk-planet/chatsync/internal/transport/http"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chatsync",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- collaborators ---
	apiClient, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.CallTimeout(),
	})
	if err != nil {
		log.Fatalf("api client: %v", err)
	}
	ids := identity.NewFileStore(cfg.Identity.Dir)

	// --- state & connection ---
	st := store.New(nil)
	router := ws.NewRouter()

	attempts := cfg.WebSocket.Attempts()
	if attempts == 0 {
		attempts = ws.NoReconnect
	}

	var sess *session.Session
	mgr := ws.NewManager(
		ws.Config{
			URL:              cfg.WebSocket.URL,
			MaxAttempts:      attempts,
			BaseDelay:        cfg.WebSocket.Delay(),
			HandshakeTimeout: cfg.WebSocket.Handshake(),
		},
		ws.NewDialer(ws.DialerConfig{
			WriteTimeout: cfg.WebSocket.Write(),
			PingInterval: cfg.WebSocket.Ping(),
		}),
		router,
		ws.WithStatusListener(func(s domain.ConnectionStatus, err error) { sess.HandleStatus(s, err) }),
	)
	defer mgr.Close()

	sess = session.New(session.Deps{
		Store:    st,
		API:      apiClient,
		Conn:     mgr,
		Router:   router,
		Identity: ids,
	}, session.Options{
		HistoryLimit: cfg.API.HistoryLimit,
		TypingIdle:   cfg.Typing.IdleAfter(),
	})

	// surface connection changes once per transition
	var last store.ConnectionState
	unsubscribe := st.Subscribe(func(s *store.State) {
		if s.Connection == last {
			return
		}
		last = s.Connection
		slog.Info("connection", "status", s.Connection.Status, "error", s.Connection.Error)
	})
	defer unsubscribe()

	// --- sign in ---
	if err := signIn(ctx, sess); err != nil {
		slog.Error("sign in failed", "err", err)
	}
	if gid := strings.TrimSpace(os.Getenv("CHAT_GROUP")); gid != "" {
		if err := sess.LoadChatGroups(ctx); err != nil {
			slog.Warn("load chat groups", "err", err)
		}
		if err := sess.JoinGroup(ctx, gid); err != nil {
			slog.Warn("join group", "group", gid, "err", err)
		}
	}

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Inspector.Addr != "" {
		srv := serverhttp.New(serverhttp.Config{Addr: cfg.Inspector.Addr}, httpx.NewRouter(httpx.Deps{
			Engine:         sess,
			AllowedOrigins: cfg.Inspector.AllowedOrigins,
		}))
		g.Go(func() error {
			slog.Info("inspector listen", "addr", cfg.Inspector.Addr)
			return srv.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		mgr.Disconnect()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("stopped with error", "err", err)
	}
	slog.Info("stopped")
}

// signIn resumes the stored identity, or creates one when CHAT_USERNAME is set.
func signIn(ctx context.Context, sess *session.Session) error {
	err := sess.Restore(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, identity.ErrNoIdentity) && !errors.Is(err, identity.ErrCorruptIdentity) {
		return err
	}

	name := strings.TrimSpace(os.Getenv("CHAT_USERNAME"))
	if name == "" {
		slog.Info("no stored identity; set CHAT_USERNAME to sign up")
		return nil
	}
	return sess.SetupUser(ctx, name, os.Getenv("CHAT_AVATAR"))
}
