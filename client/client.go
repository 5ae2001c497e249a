// Package client is a thin wrapper over the REST API consumed by the
// pages: groups, predictions, teams and payments. One method per
// endpoint, context on everything, no implicit retries.
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
	"strconv"

	"github.com/ppenca/penca/models"
	"github.com/ppenca/penca/session"
)

// ErrNotFound сигнализирует отсутствие ресурса; страница группы в этом
// случае уходит на /404.
var ErrNotFound = errors.New("client: resource not found")

// APIError — ошибка, которую вернул бэкенд.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// SetToken устанавливает Bearer-токен, полученный из Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Country   string `json:"country"`
}

// RegisterUser вызывает POST /api/auth/new.
func (c *Client) RegisterUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var envelope struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/new", nil, req, &envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Country   *string `json:"country,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// UpdateUser вызывает PUT /api/auth/update.
func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) (*models.User, error) {
	var envelope struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/update", nil, req, &envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}

// GetGroups возвращает группы, видимые зрителю: администратор
// запрашивает user=all, остальные — свою страну.
func (c *Client) GetGroups(ctx context.Context, sess *session.Session) ([]models.Group, error) {
	query := url.Values{"user": {sess.GroupsFilter()}}
	var envelope struct {
		Groups []models.Group `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/groups", query, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Groups, nil
}

func (c *Client) GetGroup(ctx context.Context, id int) (*models.Group, error) {
	var envelope struct {
		Group *models.Group `json:"group"`
	}
	path := "/api/groups/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Group, nil
}

type CreateGroupRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Password    *string `json:"password,omitempty"`
	Fee         float64 `json:"fee"`
}

func (c *Client) AddGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	var envelope struct {
		Group *models.Group `json:"group"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/groups", nil, req, &envelope); err != nil {
		return nil, err
	}
	return envelope.Group, nil
}

// ConfirmGroupPassword вызывает POST /api/groups/{id}/confirm и
// возвращает признак подтверждения. Реализует gate.PasswordConfirmer.
func (c *Client) ConfirmGroupPassword(ctx context.Context, groupID int, password string) (bool, error) {
	body := map[string]string{"password": password}
	var envelope struct {
		Confirmed bool `json:"confirmed"`
	}
	path := fmt.Sprintf("/api/groups/%d/confirm", groupID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &envelope); err != nil {
		return false, err
	}
	return envelope.Confirmed, nil
}

// PaymentIntent — результат инициирования платежа: сам платёж и ссылка
// на редирект к провайдеру, собранная из суммы взноса.
type PaymentIntent struct {
	Payment     *models.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

// PayGroup вызывает POST /api/groups/{id}/pay.
func (c *Client) PayGroup(ctx context.Context, groupID int) (*PaymentIntent, error) {
	var intent PaymentIntent
	path := fmt.Sprintf("/api/groups/%d/pay", groupID)
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ConfirmGroupPayment вызывает POST /api/groups/{id}/pay/confirm после
// возврата от провайдера.
func (c *Client) ConfirmGroupPayment(ctx context.Context, groupID int, providerRef string) (*models.Payment, error) {
	body := map[string]string{"ref": providerRef}
	var envelope struct {
		Payment *models.Payment `json:"payment"`
	}
	path := fmt.Sprintf("/api/groups/%d/pay/confirm", groupID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Payment, nil
}

func (c *Client) GetTeams(ctx context.Context) ([]models.Team, error) {
	var envelope struct {
		Teams []models.Team `json:"teams"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/teams", nil, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Teams, nil
}

// GetPrediction возвращает сохранённый прогноз пользователя для группы
// или nil, если прогноза ещё нет.
func (c *Client) GetPrediction(ctx context.Context, groupID int) (*models.Prediction, error) {
	query := url.Values{"group_id": {strconv.Itoa(groupID)}}
	var envelope struct {
		Prediction *models.Prediction `json:"prediction"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/predictions", query, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Prediction, nil
}

// SavePrediction отправляет матрицу, выборы раундов и идентификатор
// группы одним запросом. Реализует wizard.Submitter.
func (c *Client) SavePrediction(ctx context.Context, groupID int, matrix models.ScoreMatrix, rounds models.RoundPicks) error {
	body := struct {
		GroupID int                `json:"group_id"`
		Matrix  models.ScoreMatrix `json:"group"`
		Rounds  models.RoundPicks  `json:"round"`
	}{
		GroupID: groupID,
		Matrix:  matrix,
		Rounds:  rounds,
	}
	return c.do(ctx, http.MethodPost, "/api/predictions", nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dst interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var errEnvelope struct {
			Error string `json:"error"`
		}
		message := resp.Status
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errEnvelope); decodeErr == nil && errEnvelope.Error != "" {
			message = errEnvelope.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
