package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreamware/sessid/internal/session"
)

// ServerInfo identifies one member of the ensemble.
type ServerInfo struct {
	Addr     string `json:"addr"`
	ServerID int    `json:"server_id"`
}

type RegisterRequest struct {
	Server ServerInfo `json:"server"`
}

type ServerList struct {
	Servers []ServerInfo `json:"servers"`
}

// SessionResponse describes an issued session id in every form a client may
// want to display it.
type SessionResponse struct {
	CreatedAt time.Time      `json:"created_at"`
	Hex       string         `json:"hex"`
	Binary    string         `json:"binary"`
	Policy    session.Policy `json:"policy"`
	Parts     session.Parts  `json:"parts"`
	ID        int64          `json:"id"`
}

// NewSessionResponse fills in the derived representations of id.
func NewSessionResponse(id int64, policy session.Policy, created time.Time) SessionResponse {
	return SessionResponse{
		ID:        id,
		Hex:       fmt.Sprintf("0x%016x", uint64(id)),
		Binary:    session.FormatBinary(id),
		Parts:     session.Decode(id),
		Policy:    policy,
		CreatedAt: created,
	}
}

// InfoResponse is served by sessiond on /info.
type InfoResponse struct {
	Policy   session.Policy `json:"policy"`
	Seed     int64          `json:"seed"`
	Issued   int64          `json:"issued"`
	Active   int            `json:"active"`
	ServerID int64          `json:"server_id"`
}

// HTTPError is returned by PostJSON and GetJSON for non-2xx responses.
type HTTPError struct {
	URL        string
	Body       string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %s: %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http %s: %d", e.URL, e.StatusCode)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

func do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(msg)),
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
