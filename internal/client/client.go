// Package client is a typed HTTP client for the Baymax API together with
// the local session and schedule state used by the terminal front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baymax-health/apiserver/types"
)

const DefaultBaseURL = "http://localhost:8080"

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Medicine is a medicine as served by the API, with its derived progress.
type Medicine struct {
	types.Medicine
	Progress types.Progress `json:"progress"`
}

type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type MedicineRequest struct {
	Name         string            `json:"name"`
	Dose         string            `json:"dose"`
	Program      int               `json:"program"`
	Quantity     int               `json:"quantity"`
	FoodRelation string            `json:"foodRelation"`
	DailyDosage  types.DailyDosage `json:"dailyDosage"`
}

// ProfileRequest replaces the profile fields. Password is optional.
type ProfileRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

type ContactRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Phone string `json:"phone"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client calls the API. Token, when set, is sent as a bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token}
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/signup", req, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Logout revokes the client's token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out struct {
		User types.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out.User, err
}

func (c *Client) UpdateProfile(ctx context.Context, req ProfileRequest) (types.User, error) {
	var out struct {
		User types.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPut, "/auth/profile", req, &out)
	return out.User, err
}

func (c *Client) Medicines(ctx context.Context) ([]Medicine, error) {
	var out struct {
		Medicines []Medicine `json:"medicines"`
	}
	err := c.do(ctx, http.MethodGet, "/medicines", nil, &out)
	return out.Medicines, err
}

func (c *Client) CreateMedicine(ctx context.Context, req MedicineRequest) (Medicine, error) {
	var out struct {
		Medicine Medicine `json:"medicine"`
	}
	err := c.do(ctx, http.MethodPost, "/medicines", req, &out)
	return out.Medicine, err
}

// UpdateMedicine replaces the regimen of a medicine. Its intake history is
// kept.
func (c *Client) UpdateMedicine(ctx context.Context, id string, req MedicineRequest) (Medicine, error) {
	var out struct {
		Medicine Medicine `json:"medicine"`
	}
	err := c.do(ctx, http.MethodPut, "/medicines/"+url.PathEscape(id), req, &out)
	return out.Medicine, err
}

func (c *Client) DeleteMedicine(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/medicines/"+url.PathEscape(id), nil, nil)
}

// Today fetches the server-side schedule for the current day.
func (c *Client) Today(ctx context.Context) (types.Schedule, error) {
	var out struct {
		Schedule types.Schedule `json:"schedule"`
	}
	err := c.do(ctx, http.MethodGet, "/medicines/today", nil, &out)
	return out.Schedule, err
}

// Take records (taken=true) or undoes (taken=false) a slot of today's
// intake. A zero count uses the configured dosage.
func (c *Client) Take(ctx context.Context, id string, slot types.TimeOfDay, taken bool, count int) (Medicine, error) {
	body := struct {
		TimeOfDay types.TimeOfDay `json:"timeOfDay"`
		Taken     bool            `json:"taken"`
		Count     int             `json:"count,omitempty"`
	}{TimeOfDay: slot, Taken: taken, Count: count}

	var out struct {
		Medicine Medicine `json:"medicine"`
	}
	err := c.do(ctx, http.MethodPost, "/medicines/"+url.PathEscape(id)+"/take", body, &out)
	return out.Medicine, err
}

func (c *Client) Contacts(ctx context.Context) ([]types.Contact, error) {
	var out struct {
		Contacts []types.Contact `json:"contacts"`
	}
	err := c.do(ctx, http.MethodGet, "/contacts", nil, &out)
	return out.Contacts, err
}

func (c *Client) CreateContact(ctx context.Context, req ContactRequest) (types.Contact, error) {
	var out struct {
		Contact types.Contact `json:"contact"`
	}
	err := c.do(ctx, http.MethodPost, "/contacts", req, &out)
	return out.Contact, err
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/contacts/"+url.PathEscape(id), nil, nil)
}

// Reports lists the ids of the stored adherence reports.
func (c *Client) Reports(ctx context.Context) ([]string, error) {
	var out struct {
		Reports []string `json:"reports"`
	}
	err := c.do(ctx, http.MethodGet, "/reports", nil, &out)
	return out.Reports, err
}

// CreateReport snapshots an adherence report and returns its storage key.
func (c *Client) CreateReport(ctx context.Context) (string, types.Report, error) {
	var out struct {
		Key    string       `json:"key"`
		Report types.Report `json:"report"`
	}
	err := c.do(ctx, http.MethodPost, "/reports", nil, &out)
	return out.Key, out.Report, err
}

func (c *Client) Report(ctx context.Context, id string) (types.Report, error) {
	var out struct {
		Report types.Report `json:"report"`
	}
	err := c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, &out)
	return out.Report, err
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reports/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}
