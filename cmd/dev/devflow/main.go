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

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"movebooking/internal/booking"
	"movebooking/internal/catalog"
	"movebooking/pkg/config"
	"movebooking/pkg/identity"
)

// devflow walks the customer booking flow against a running API with a
// locally minted access token.
func main() {
	cfg := config.Load()

	var (
		baseURL   = flag.String("url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		userID    = flag.String("user", uuid.NewString(), "identity user id (token subject)")
		email     = flag.String("email", "dev@example.com", "token email")
		serviceID = flag.String("service", "apartment-move", "catalog offering id")
		floor     = flag.Int("floor", 3, "floor level")
		addOns    = flag.String("add-ons", "Full packing service,Furniture assembly", "comma-separated add-on names")
		from      = flag.String("from", "Kilimani, Nairobi", "pickup location")
		to        = flag.String("to", "Westlands, Nairobi", "drop-off location")
		date      = flag.String("date", time.Now().AddDate(0, 0, 14).Format(time.DateOnly), "booking date (YYYY-MM-DD)")
	)
	flag.Parse()

	if cfg.Identity.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "missing IDENTITY_JWT_SECRET in env/.env")
		os.Exit(2)
	}
	if *baseURL == "" {
		*baseURL = localURL(cfg.HTTPAddr)
	}

	now := time.Now()
	token, err := identity.Mint(cfg.Identity.JWTSecret, identity.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *userID,
			Issuer:    cfg.Identity.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Identity.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: *email,
		Role:  "authenticated",
	})
	if err != nil {
		fail("mint token", err)
	}

	c := client{base: strings.TrimRight(*baseURL, "/"), token: token, http: &http.Client{Timeout: 10 * time.Second}}

	var offering catalog.Offering
	c.do(http.MethodGet, "/v1/catalog/services/"+*serviceID, nil, &offering)
	fmt.Printf("offering=%s starting_price=%d %s\n", offering.ID, offering.StartingPrice, catalog.Currency)

	names := splitList(*addOns)
	var quote catalog.Breakdown
	c.do(http.MethodPost, "/v1/estimates", map[string]any{
		"service_id": offering.ID, "floor_level": *floor, "add_ons": names,
	}, &quote)
	fmt.Printf("server estimate=%d (base=%d floors=%d)\n", quote.Total, quote.Base, quote.FloorSurcharge)

	// The local draft must agree with the server quote.
	draft, err := catalog.DraftFor(offering, *floor, names)
	if err != nil {
		fail("build draft", err)
	}
	if draft.EstimatedTotal() != quote.Total {
		fail("compare estimate", fmt.Errorf("draft total %d != server total %d", draft.EstimatedTotal(), quote.Total))
	}

	var me map[string]any
	c.do(http.MethodGet, "/v1/me", nil, &me)
	fmt.Printf("me id=%v role=%v\n", me["id"], me["role"])

	var created booking.Booking
	c.do(http.MethodPost, "/v1/bookings", booking.RequestFromDraft(draft, *from, *to, *date, nil), &created)
	fmt.Printf("booking id=%s status=%s version=%d\n", created.ID, created.Status, created.Version)

	var page struct {
		Items []booking.Booking `json:"items"`
		Total int               `json:"total"`
	}
	c.do(http.MethodGet, "/v1/bookings?status=pending", nil, &page)
	fmt.Printf("pending bookings=%d\n", page.Total)

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("- Promote the user to admin: UPDATE users SET role='admin' WHERE id='%s';\n", *userID)
	fmt.Printf("- Confirm: PUT %s/v1/admin/bookings/%s/status {\"status\":\"confirmed\"}\n", c.base, created.ID)
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c client) do(method, path string, body any, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fail("encode "+path, err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		fail("new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? url=%s\n", c.base)
		fail(method+" "+path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail(method+" "+path, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b)))
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			fail("decode "+path, err)
		}
	}
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
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
