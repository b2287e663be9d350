// Command inquiry-watch signs in as an admin and follows the inquiry feed in a
// terminal, printing notifications as they arrive.
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
	"sync"
	"syscall"
	"time"

	"github.com/corpsite-backoffice/internal/application/authgate"
	"github.com/corpsite-backoffice/internal/client"
	"github.com/corpsite-backoffice/internal/config"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/logging"
	"github.com/corpsite-backoffice/internal/notify"
	"github.com/corpsite-backoffice/internal/realtime"
	"github.com/joho/godotenv"
)

// printingNotifier forwards to the center and prints what it keeps.
type printingNotifier struct {
	center *notify.Center
	out    io.Writer
}

func (p printingNotifier) Add(n domain.Notification) (string, bool) {
	nid, added := p.center.Add(n)
	if added {
		fmt.Fprintf(p.out, "%s [%s] %s: %s\n", time.Now().Format("15:04:05"), n.Type, n.Title, n.Message)
	}
	return nid, added
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("INQUIRY_WATCH_API", "http://localhost:3000"), "back office API base URL")
	email := flag.String("email", os.Getenv("INQUIRY_WATCH_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("INQUIRY_WATCH_PASSWORD"), "admin password")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logging.Setup(config.LogConfig{Level: *logLevel, Format: "text"})
	if *email == "" || *password == "" {
		logging.Fatal("email and password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *apiURL, *email, *password); err != nil {
		logging.Fatal("inquiry-watch", "err", err)
	}
}

var errSessionExpired = errors.New("session expired")

func run(ctx context.Context, log *slog.Logger, apiURL, email, password string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tracker := authgate.NewTracker()
	tracker.OnChange(func(s authgate.SessionState, id authgate.Identity) {
		log.Debug("session state", "state", s, "admin", id.IsAdmin)
	})

	api, err := client.New(apiURL, client.WithSessionExpired(func() {
		tracker.Expire()
		cancel(errSessionExpired)
	}))
	if err != nil {
		return err
	}

	tracker.BeginAuth()
	res, err := api.Login(ctx, email, password)
	if err != nil {
		tracker.AuthFailed()
		return fmt.Errorf("sign in: %w", err)
	}
	tracker.SignIn(authgate.Identity{
		User:      &domain.AuthUser{ID: res.Session.UserID, Email: email},
		SessionID: res.Session.SessionID,
	})
	if id, err := api.Session(ctx); err == nil && id.IsAuthenticated {
		tracker.ProfileResolved(id)
	} else {
		log.Warn("profile lookup failed", "err", err)
		tracker.ProfileFailed()
	}

	defer func() {
		if api.Token() == "" {
			return
		}
		logoutCtx, cancelLogout := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelLogout()
		if err := api.Logout(logoutCtx); err != nil {
			log.Warn("sign out", "err", err)
		}
		tracker.SignOut()
	}()

	if tracker.Decision() != authgate.DecisionAllowed {
		return fmt.Errorf("%s is not an admin: %w", email, domain.ErrForbidden)
	}

	center := notify.NewCenter()
	defer center.Close()
	go center.Run(ctx)

	var (
		mu         sync.Mutex
		lastCount  = -1
		lastStatus realtime.ConnectionStatus
	)
	feed := realtime.NewFeed(realtime.FeedDeps{
		Fetcher:  api,
		Source:   client.NewChangeSource(api, log),
		Notifier: printingNotifier{center: center, out: os.Stdout},
		Logger:   log,
		OnChange: func(s realtime.Snapshot) {
			if s.Loading {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if len(s.Items) != lastCount || s.Status != lastStatus {
				lastCount, lastStatus = len(s.Items), s.Status
				fmt.Fprintf(os.Stdout, "inquiries: %d (%s, pending %d)\n", len(s.Items), s.Status, countPending(s.Items))
			}
			if s.Error != "" {
				fmt.Fprintf(os.Stdout, "error: %s\n", s.Error)
			}
		},
	})
	feed.Start(ctx, true)
	defer feed.Stop()

	<-ctx.Done()
	feed.Stop()
	if errors.Is(context.Cause(ctx), errSessionExpired) {
		return fmt.Errorf("sign in again: %w", errSessionExpired)
	}
	return nil
}

func countPending(items []domain.Inquiry) int {
	n := 0
	for _, inq := range items {
		if inq.Status == domain.InquiryPending {
			n++
		}
	}
	return n
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
