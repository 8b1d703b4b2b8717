// Command wsload holds many notification streams open against a running API and
// drives follow events into them.
//
// Each simulated figure is provisioned through /api/me/ensure, opens a ticketed
// stream and is then followed (and unfollowed) by a shared "wsload-target" figure
// on an interval. Only the follow half of each toggle produces an event.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const targetSubject = "wsload-target"

type counters struct {
	dialed    atomic.Int64
	connected atomic.Int64
	failed    atomic.Int64
	toggles   atomic.Int64
	received  atomic.Int64
	errors    atomic.Int64
}

type loadClient struct {
	host   string
	secret []byte
	http   *http.Client
	stats  *counters
}

func main() {
	host := flag.String("host", "localhost:8080", "API host:port")
	secret := flag.String("secret", os.Getenv("AUTH_JWT_SECRET"), "HS256 secret the API verifies bearer tokens with")
	clients := flag.Int("clients", 50, "concurrent streams")
	duration := flag.Duration("duration", 30*time.Second, "how long to hold the streams open")
	interval := flag.Duration("interval", 2*time.Second, "follow toggle period per stream")
	flag.Parse()

	if *secret == "" {
		log.Fatal("wsload: -secret or AUTH_JWT_SECRET is required")
	}

	lc := &loadClient{
		host:   *host,
		secret: []byte(*secret),
		http:   &http.Client{Timeout: 5 * time.Second},
		stats:  &counters{},
	}

	target, err := lc.token(targetSubject)
	if err == nil {
		err = lc.post("/api/me/ensure", target, nil, nil)
	}
	if err != nil {
		log.Fatalf("wsload: provision %s: %v", targetSubject, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	log.Printf("wsload: %d streams against %s for %v", *clients, *host, *duration)

	var g errgroup.Group
	for i := 0; i < *clients; i++ {
		id := i
		g.Go(func() error {
			lc.run(ctx, id, target, *interval)
			return nil
		})
		// Stagger dials so the ticket endpoint's rate limit is not the thing under test.
		time.Sleep(50 * time.Millisecond)
	}
	<-ctx.Done()
	_ = g.Wait()

	lc.stats.print()
}

func (lc *loadClient) token(subject string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(lc.secret)
}

// post sends body as JSON with a bearer token and decodes the reply into dest when non-nil.
func (lc *loadClient) post(path, token string, body, dest interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, "http://"+lc.host+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := lc.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// open provisions figure id and returns its username and a live stream.
func (lc *loadClient) open(id int) (string, *websocket.Conn, error) {
	token, err := lc.token(fmt.Sprintf("wsload-%d", id))
	if err != nil {
		return "", nil, err
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := lc.post("/api/me/ensure", token, nil, &me); err != nil {
		return "", nil, err
	}
	var t struct {
		Ticket string `json:"ticket"`
	}
	if err := lc.post("/api/ws/ticket", token, nil, &t); err != nil {
		return "", nil, err
	}

	u := url.URL{Scheme: "ws", Host: lc.host, Path: "/api/ws", RawQuery: url.Values{"ticket": {t.Ticket}}.Encode()}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return "", nil, err
	}
	return me.Username, conn, nil
}

func (lc *loadClient) run(ctx context.Context, id int, target string, interval time.Duration) {
	lc.stats.dialed.Add(1)
	username, conn, err := lc.open(id)
	if err != nil {
		lc.stats.failed.Add(1)
		lc.stats.errors.Add(1)
		return
	}
	defer func() { _ = conn.Close() }()
	lc.stats.connected.Add(1)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			lc.stats.received.Add(1)
		}
	}()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-tick.C:
			if err := lc.post("/api/follow", target, map[string]string{"username": username}, nil); err != nil {
				lc.stats.errors.Add(1)
				continue
			}
			lc.stats.toggles.Add(1)
		}
	}
}

func (s *counters) print() {
	fmt.Printf("streams dialed:    %d\n", s.dialed.Load())
	fmt.Printf("streams connected: %d\n", s.connected.Load())
	fmt.Printf("streams failed:    %d\n", s.failed.Load())
	fmt.Printf("follow toggles:    %d\n", s.toggles.Load())
	fmt.Printf("events received:   %d\n", s.received.Load())
	fmt.Printf("errors:            %d\n", s.errors.Load())
}
