package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiznet/internal/config"
	"quiznet/internal/domain"
	"quiznet/internal/infra/memory"
	pgloader "quiznet/internal/infra/postgres"
	redisrepo "quiznet/internal/infra/redis"
	"quiznet/internal/quiz"
	"quiznet/internal/registry"
	"quiznet/internal/transport/tcp"
	"quiznet/internal/transport/udp"
	"quiznet/internal/transport/ws"
)

type serverFlags struct {
	tcpAddr  string
	udpAddr  string
	httpAddr string
	bank     string
	file     string
}

// NewStartCmd builds the CLI subcommand to start the quiz server.
func NewStartCmd(configPath *string) *cobra.Command {
	flags := &serverFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server and host console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.tcpAddr, "tcp-addr", "", "TCP listen address (env: QUIZNET_TCP_ADDR)")
	fs.StringVar(&flags.udpAddr, "udp-addr", "", "UDP listen address (env: QUIZNET_UDP_ADDR)")
	fs.StringVar(&flags.httpAddr, "http-addr", "", "HTTP/WebSocket listen address (env: QUIZNET_HTTP_ADDR)")
	fs.StringVar(&flags.bank, "bank", "", "question bank name (env: QUIZNET_BANK)")
	fs.StringVar(&flags.file, "file", "", "question file, one '<text>|<letter>' row per question (env: QUIZNET_FILE)")
	bindEnv(fs)

	return cmd
}

func runServer(ctx context.Context, configPath string, flags *serverFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, flags)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	switch {
	case pool != nil:
		loader = pgloader.NewBankLoader(pool)
	case cfg.Quiz.File != "":
		loader = memory.NewFileBankLoader(cfg.Quiz.File)
	}

	quizTTL := config.DurationOr(cfg.Quiz.TTL, 10*time.Minute)
	var banks quiz.BankRepository
	if redisClient != nil {
		banks = redisrepo.NewBankRepository(redisClient, loader, config.DurationOr(cfg.Redis.TTL, quizTTL))
	} else {
		banks = memory.NewBankRepository(loader, quizTTL)
	}

	engineCfg := quiz.DefaultConfig()
	if cfg.Quiz.TimeoutSeconds > 0 {
		engineCfg.DefaultTimeout = time.Duration(cfg.Quiz.TimeoutSeconds) * time.Second
	}
	if cfg.Quiz.MaxQuestions > 0 {
		engineCfg.MaxQuestions = cfg.Quiz.MaxQuestions
	}

	reg := registry.New(cfg.Quiz.MaxPlayers)
	gateway := quiz.NewGateway(reg)
	director := quiz.NewDirector(reg, banks, cfg.Quiz.Bank, engineCfg)

	tcpServer := tcp.NewServer(cfg.Server.TCPAddr, gateway)
	udpServer := udp.NewServer(cfg.Server.UDPAddr, gateway)
	wsHandler := ws.NewHandler(gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/qr", ws.ServeQR)

	httpServer := &http.Server{
		Addr:        cfg.Server.HTTPAddr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		select {
		case <-stop:
			log.Printf("shutdown signal received")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error { return tcpServer.Run(gctx) })
	g.Go(func() error { return udpServer.Run(gctx) })

	g.Go(func() error {
		log.Printf("http listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		// The server is done once the quiz is: listeners stop with the
		// director, matching the original single-session design.
		defer cancel()
		summary, err := director.Run(gctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		printSummary(os.Stdout, summary)
		return nil
	})

	g.Go(func() error {
		runHostConsole(gctx, cancel, director, reg, engineCfg.DefaultTimeout)
		return nil
	})

	return g.Wait()
}

func applyFlags(cfg *config.Config, flags *serverFlags) {
	if flags.tcpAddr != "" {
		cfg.Server.TCPAddr = flags.tcpAddr
	}
	if flags.udpAddr != "" {
		cfg.Server.UDPAddr = flags.udpAddr
	}
	if flags.httpAddr != "" {
		cfg.Server.HTTPAddr = flags.httpAddr
	}
	if flags.bank != "" {
		cfg.Quiz.Bank = flags.bank
	}
	if flags.file != "" {
		cfg.Quiz.File = flags.file
	}
}

// sampleBanks provides a built-in bank so the server runs with no question
// file and no database; swap in Postgres or a file for real content.
func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"default": {
			{ID: 1, Text: "Which protocol is connection-oriented and guarantees reliability? A) TCP  B) UDP", Correct: "A"},
			{ID: 2, Text: "Which port does HTTPS use by default? A) 80  B) 21  C) 443  D) 25", Correct: "C"},
			{ID: 3, Text: "Which OSI layer does IP operate at? A) Transport  B) Network  C) Session  D) Data link", Correct: "B"},
			{ID: 4, Text: "Which address is the IPv4 loopback? A) 0.0.0.0  B) 127.0.0.1  C) 192.168.0.1  D) 255.255.255.255", Correct: "B"},
			{ID: 5, Text: "Which DNS record maps a hostname to an IPv4 address? A) A  B) MX  C) TXT  D) CNAME", Correct: "A"},
		},
	}
}
