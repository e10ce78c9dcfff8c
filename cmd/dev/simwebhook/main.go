package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"movebooking/internal/payment"
	"movebooking/pkg/config"
)

func main() {
	cfg := config.Load()

	var (
		url       = flag.String("url", "", "callback endpoint (defaults to http://localhost<HTTP_ADDR>/v1/webhooks/payments)")
		secret    = flag.String("secret", cfg.Payments.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
		reference = flag.String("reference", "", "payment reference to settle")
		status    = flag.String("status", "completed", "new payment status")
		payload   = flag.String("payload", "", "optional path to a raw json payload (overrides -reference/-status)")
		eventID   = flag.String("id", "", "optional X-Event-Id; the body hash is used when empty")
	)
	flag.Parse()

	if *url == "" {
		*url = localURL(cfg.HTTPAddr) + "/v1/webhooks/payments"
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or PAYMENT_WEBHOOK_SECRET in env/.env)")
		os.Exit(2)
	}

	var body []byte
	if *payload != "" {
		b, err := os.ReadFile(*payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(2)
		}
		body = b
	} else {
		if *reference == "" {
			fmt.Fprintln(os.Stderr, "missing -reference or -payload")
			os.Exit(2)
		}
		body, _ = json.Marshal(payment.CallbackPayload{Reference: *reference, Status: *status})
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", payment.Sign(body, *secret))
	if *eventID != "" {
		req.Header.Set("X-Event-Id", *eventID)
	}

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(b))
}

func localURL(httpAddr string) string {
	addr := strings.TrimSpace(httpAddr)
	switch {
	case strings.HasPrefix(addr, ":"):
		return "http://localhost" + addr
	case strings.HasPrefix(addr, "0.0.0.0:"):
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	case addr != "":
		return "http://" + addr
	default:
		return "http://localhost:8080"
	}
}
