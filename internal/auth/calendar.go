package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarScope allows creating and editing events, nothing else.
const CalendarScope = "https://www.googleapis.com/auth/calendar.events"

// consentTimeout bounds how long the browser flow waits for the user.
const consentTimeout = 5 * time.Minute

// ErrStateMismatch means the callback did not carry the state this flow issued.
var ErrStateMismatch = errors.New("oauth state mismatch")

func calendarOAuthConfig(clientID, clientSecret string, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{CalendarScope},
		Endpoint:     endpoint,
	}
}

// AuthorizeCalendar runs the loopback OAuth2 flow for the calendar.events
// scope. open is called with the consent URL; nil opens the system browser.
func AuthorizeCalendar(ctx context.Context, clientID, clientSecret string, open func(url string)) (*CalendarGrant, error) {
	return authorize(ctx, calendarOAuthConfig(clientID, clientSecret, google.Endpoint), open)
}

func authorize(ctx context.Context, conf *oauth2.Config, open func(string)) (*CalendarGrant, error) {
	if open == nil {
		open = openBrowser
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", listener.Addr().(*net.TCPAddr).Port)

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	r := chi.NewRouter()
	r.Get("/callback", callbackHandler(state, codes, errs))
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(errs, fmt.Errorf("callback server: %w", err))
		}
	}()
	defer srv.Close()

	open(conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for calendar consent: %w", ctx.Err())
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("google returned no refresh token; revoke convolens at https://myaccount.google.com/permissions and retry")
	}

	return &CalendarGrant{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scope:        CalendarScope,
		GrantedAt:    time.Now().UTC(),
		Token:        tok,
	}, nil
}

// callbackHandler accepts exactly one redirect carrying the expected state.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			deliver(errs, ErrStateMismatch)
			return
		}
		if msg := q.Get("error"); msg != "" {
			fmt.Fprintf(w, "<html><body><h2>Calendar access was not granted</h2><p>%s</p></body></html>", html.EscapeString(msg))
			deliver(errs, fmt.Errorf("consent denied: %s", msg))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			deliver(errs, errors.New("callback carried no authorization code"))
			return
		}
		fmt.Fprint(w, "<html><body><h2>Calendar connected</h2><p>Return to the terminal.</p></body></html>")
		deliver(codes, code)
	}
}

// deliver never blocks; only the first result of a flow matters.
func deliver[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// CalendarTokenSource returns a token source for grant that writes every
// refreshed token back to store, so the next process starts from it.
func CalendarTokenSource(ctx context.Context, store *Store, grant *CalendarGrant) oauth2.TokenSource {
	return tokenSource(ctx, store, grant, google.Endpoint)
}

func tokenSource(ctx context.Context, store *Store, grant *CalendarGrant, endpoint oauth2.Endpoint) oauth2.TokenSource {
	conf := calendarOAuthConfig(grant.ClientID, grant.ClientSecret, endpoint)
	base := conf.TokenSource(ctx, grant.Token)
	return oauth2.ReuseTokenSource(grant.Token, &persistingSource{
		base:  base,
		store: store,
		last:  grant.Token.AccessToken,
	})
}

type persistingSource struct {
	base  oauth2.TokenSource
	store *Store

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	err = p.store.Update(func(c *Credentials) {
		if c.Calendar != nil {
			c.Calendar.Token = tok
		}
	})
	if err != nil {
		return nil, fmt.Errorf("persisting refreshed calendar token: %w", err)
	}
	p.last = tok.AccessToken
	return tok, nil
}

func openBrowser(url string) {
	fmt.Printf("Opening browser for Google Calendar consent. If it does not open, visit:\n%s\n\n", url)
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
