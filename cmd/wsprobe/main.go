// Package main provides a load and smoke tool for the realtime WebSocket
// endpoint. Each client redeems its own ticket, subscribes to topics and
// counts the events it receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"pariposhan/internal/config"
	"pariposhan/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	FramesSent           int64
	EventsReceived       int64
	Errors               int64
}

var metrics Metrics

type options struct {
	host     string
	token    string
	userID   uint
	role     string
	topics   []string
	clients  int
	duration time.Duration
	verbose  bool
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	token := flag.String("token", "", "Bearer token; minted from JWT_SECRET when empty")
	userID := flag.Uint("user", 1, "User ID for a minted token")
	role := flag.String("role", "member", "Role for a minted token")
	topics := flag.String("topics", "feed:post,feed:article,products", "Comma-separated topics to subscribe to")
	clients := flag.Int("clients", 10, "Number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "Probe duration")
	verbose := flag.Bool("v", false, "Print every received event")
	flag.Parse()

	opts := options{
		host:     *host,
		token:    *token,
		userID:   *userID,
		role:     *role,
		topics:   splitTopics(*topics),
		clients:  *clients,
		duration: *duration,
		verbose:  *verbose,
	}

	log.Printf("🚀 Starting WebSocket probe")
	log.Printf("Target: %s", opts.host)
	log.Printf("Clients: %d", opts.clients)
	log.Printf("Topics: %s", strings.Join(opts.topics, ", "))
	log.Printf("Duration: %v", opts.duration)

	if opts.token == "" {
		minted, err := mintToken(opts.userID, opts.role)
		if err != nil {
			log.Fatalf("❌ Could not mint token: %v", err)
		}
		opts.token = minted
		log.Printf("✅ Minted token for user %d (%s)", opts.userID, opts.role)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < opts.clients; i++ {
		wg.Add(1)
		go runClient(opts, i, stopChan, &wg)
		time.Sleep(50 * time.Millisecond) // Stagger connections to allow ticket issuance
	}

	select {
	case <-time.After(opts.duration):
		log.Println("⏱️  Probe duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

func splitTopics(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// mintToken signs a short-lived token with the configured secret. It only
// works against a server sharing the same JWT settings.
func mintToken(userID uint, role string) (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := middleware.Claims{
		Name: fmt.Sprintf("probe-%d", userID),
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    cfg.JWTIssuer,
			Audience:  jwt.ClaimStrings{cfg.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

func getTicket(host, token string) (string, error) {
	ticketURL := fmt.Sprintf("http://%s/api/ws/ticket", host)
	req, err := http.NewRequest(http.MethodPost, ticketURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}

	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Ticket, nil
}

type frame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

func runClient(opts options, id int, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	// Tickets are single use, so every connection asks for its own.
	ticket, err := getTicket(opts.host, opts.token)
	if err != nil {
		log.Printf("client %d: %v", id, err)
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	u := url.URL{Scheme: "ws", Host: opts.host, Path: "/api/ws", RawQuery: "ticket=" + url.QueryEscape(ticket)}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Printf("client %d: dial: %v", id, err)
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	for _, topic := range opts.topics {
		if err := c.WriteJSON(frame{Type: "subscribe", Topic: topic}); err != nil {
			atomic.AddInt64(&metrics.Errors, 1)
			return
		}
		atomic.AddInt64(&metrics.FramesSent, 1)
	}

	go func() {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
			if opts.verbose {
				log.Printf("client %d <- %s", id, msg)
			}
		}
	}()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if err := c.WriteJSON(frame{Type: "ping"}); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				return
			}
			atomic.AddInt64(&metrics.FramesSent, 1)
		}
	}
}

func printMetrics() {
	log.Println("\n📊 Probe Results")
	log.Println("================")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Frames Sent: %d", atomic.LoadInt64(&metrics.FramesSent))
	log.Printf("Events Received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
