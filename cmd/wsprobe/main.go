// Command wsprobe opens notification streams against a running API and
// reports what arrives. It is meant for smoke and soak testing the in-app
// channel.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"jeevandhara/internal/identity"
	"jeevandhara/internal/notifications"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	MessagesReceived     int64
	Errors               int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	token := flag.String("token", "", "Bearer token; signed locally from -secret when empty")
	secret := flag.String("secret", os.Getenv("IDENTITY_JWT_SECRET"), "Identity signing secret")
	issuer := flag.String("issuer", os.Getenv("IDENTITY_ISSUER"), "Token issuer")
	audience := flag.String("audience", os.Getenv("IDENTITY_AUDIENCE"), "Token audience")
	uid := flag.String("uid", "", "Subject of the locally signed token")
	email := flag.String("email", "", "Email of the locally signed token")
	clients := flag.Int("clients", 1, "Number of concurrent connections")
	duration := flag.Duration("duration", 30*time.Second, "Probe duration")
	verbose := flag.Bool("v", false, "Print every notification")
	flag.Parse()

	if *token == "" {
		if *secret == "" || *uid == "" || *email == "" {
			log.Fatal("either -token or -secret, -uid and -email are required")
		}
		signed, err := identity.Sign(*secret, *issuer, *audience,
			identity.Identity{UID: *uid, Email: *email, EmailVerified: true}, time.Hour)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		*token = signed
	}

	profile, err := whoami(*host, *token)
	if err != nil {
		log.Fatalf("profile check failed: %v", err)
	}
	log.Printf("probing as %s #%v on %s with %d client(s) for %v",
		profile["userType"], profile["id"], *host, *clients, *duration)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := range *clients {
		wg.Add(1)
		go runClient(*host, *token, i, *verbose, stop, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-time.After(*duration):
		log.Println("duration reached")
	case <-interrupt:
		log.Println("interrupted")
	}

	close(stop)
	wg.Wait()
	printMetrics()
}

func whoami(host, token string) (map[string]any, error) {
	var profile map[string]any
	resp, err := resty.New().
		SetTimeout(5 * time.Second).
		R().
		SetAuthToken(token).
		SetResult(&profile).
		Get(fmt.Sprintf("http://%s/api/v1/auth/me", host))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET /auth/me: %s: %s", resp.Status(), resp.String())
	}
	return profile, nil
}

func runClient(host, token string, id int, verbose bool, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/v1/ws/notifications", RawQuery: "token=" + url.QueryEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		log.Printf("client %d: dial: %v", id, err)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.MessagesReceived, 1)
			if !verbose {
				continue
			}
			var env notifications.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				log.Printf("client %d: bad frame: %s", id, raw)
				continue
			}
			log.Printf("client %d: [%s] %s: %s", id, env.Type, env.Title, env.Body)
		}
	}()

	select {
	case <-stop:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
	}
}

func printMetrics() {
	fmt.Println("--- wsprobe results ---")
	fmt.Printf("connections attempted: %d\n", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	fmt.Printf("connections succeeded: %d\n", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	fmt.Printf("connections failed:    %d\n", atomic.LoadInt64(&metrics.ConnectionsFailed))
	fmt.Printf("messages received:     %d\n", atomic.LoadInt64(&metrics.MessagesReceived))
	fmt.Printf("errors:                %d\n", atomic.LoadInt64(&metrics.Errors))
}
