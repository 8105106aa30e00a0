// Package hotelapi is the HTTP client for the hotel, booking and user services.
package hotelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stayhaven/internal/metrics"
	"stayhaven/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client calls the backend on behalf of anonymous visitors.
// Use As to act for a logged-in user.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// AuthResult is the answer of a successful login.
type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type errorBody struct {
	Message string `json:"message"`
}

// NewClient constructs a client. timeout bounds every request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for catalog GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outgoing requests.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// As returns a view of the client that authenticates with token.
func (c *Client) As(token string) *Authorized {
	return &Authorized{c: c, token: token}
}

// ListHotels runs a listing query built by the search form.
func (c *Client) ListHotels(ctx context.Context, query url.Values) ([]model.Hotel, error) {
	endpoint := fmt.Sprintf("%s/api/hotels", c.baseURL)
	if enc := query.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	cacheKey := "hotels:" + query.Encode()
	var hotels []model.Hotel

	if c.readCache(ctx, cacheKey, &hotels) {
		return hotels, nil
	}
	if err := c.doGet(ctx, "list_hotels", endpoint, "", &hotels); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, hotels)
	return hotels, nil
}

// GetHotel fetches one hotel.
func (c *Client) GetHotel(ctx context.Context, hotelID string) (*model.Hotel, error) {
	endpoint := fmt.Sprintf("%s/api/hotels/find/%s", c.baseURL, url.PathEscape(hotelID))
	cacheKey := "hotel:" + hotelID
	var hotel model.Hotel

	if c.readCache(ctx, cacheKey, &hotel) {
		return &hotel, nil
	}
	if err := c.doGet(ctx, "get_hotel", endpoint, "", &hotel); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, hotel)
	return &hotel, nil
}

// GetHotelRooms returns the rooms of a hotel with their units.
func (c *Client) GetHotelRooms(ctx context.Context, hotelID string) ([]model.Room, error) {
	endpoint := fmt.Sprintf("%s/api/hotels/room/%s", c.baseURL, url.PathEscape(hotelID))
	cacheKey := roomsCacheKey(hotelID)
	var rooms []model.Room

	if c.readCache(ctx, cacheKey, &rooms) {
		return rooms, nil
	}
	if err := c.doGet(ctx, "hotel_rooms", endpoint, "", &rooms); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, rooms)
	return rooms, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	endpoint := fmt.Sprintf("%s/api/auth/login", c.baseURL)
	body := map[string]string{"username": username, "password": password}
	var res AuthResult
	if err := c.doJSON(ctx, "login", http.MethodPost, endpoint, "", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login: empty token in response")
	}
	return &res, nil
}

// HealthCheck checks if the backend is available.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// Authorized calls the backend as a logged-in user.
type Authorized struct {
	c     *Client
	token string
}

// GetUserBookings lists the bookings of a user. Records that break the booking
// invariants are dropped.
func (a *Authorized) GetUserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/bookings/user/%s", a.c.baseURL, url.PathEscape(userID))
	var raw []model.Booking
	if err := a.c.doGet(ctx, "user_bookings", endpoint, a.token, &raw); err != nil {
		return nil, err
	}

	bookings := make([]model.Booking, 0, len(raw))
	for i := range raw {
		if err := raw[i].Validate(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("booking_id", raw[i].ID).Msg("skipping invalid booking")
			continue
		}
		bookings = append(bookings, raw[i])
	}
	return bookings, nil
}

// CancelBooking asks the booking service to cancel a booking.
func (a *Authorized) CancelBooking(ctx context.Context, bookingID string) error {
	endpoint := fmt.Sprintf("%s/api/bookings/%s/cancel", a.c.baseURL, url.PathEscape(bookingID))
	return a.c.doJSON(ctx, "cancel_booking", http.MethodPut, endpoint, a.token, nil, nil)
}

// CreateBooking reserves a unit.
func (a *Authorized) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/bookings", a.c.baseURL)
	var created model.Booking
	if err := a.c.doJSON(ctx, "create_booking", http.MethodPost, endpoint, a.token, req, &created); err != nil {
		return nil, err
	}
	a.c.dropCache(ctx, roomsCacheKey(req.HotelID))
	return &created, nil
}

// UpdateUser saves profile fields. Credentials are never part of the payload.
func (a *Authorized) UpdateUser(ctx context.Context, userID string, fields model.ProfileFields) (*model.User, error) {
	endpoint := fmt.Sprintf("%s/api/users/%s", a.c.baseURL, url.PathEscape(userID))
	var updated model.User
	if err := a.c.doJSON(ctx, "update_user", http.MethodPut, endpoint, a.token, fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func roomsCacheKey(hotelID string) string {
	return "rooms:" + hotelID
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) dropCache(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func (c *Client) doGet(ctx context.Context, name, endpoint, token string, out any) error {
	return c.doJSON(ctx, name, http.MethodGet, endpoint, token, nil, out)
}

func (c *Client) doJSON(ctx context.Context, name, method, endpoint, token string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req, token)
	return c.do(name, req, out)
}

func (c *Client) do(name string, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(name, "error", time.Since(start))
		return err
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest(name, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(data, &eb) == nil {
				apiErr.Message = eb.Message
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *Client) addHeaders(req *http.Request, token string) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
