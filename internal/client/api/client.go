// Package api is the HTTP client for the chess server.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"chessai/internal/client/display"
	"chessai/internal/core"
)

// HealthResponse mirrors the server's /health payload
type HealthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
	Games  int    `json:"games"`
}

// Error is a non-2xx reply
type Error struct {
	Status int
	Body   core.ErrorResponse
}

func (e *Error) Error() string {
	switch {
	case e.Body.Code != "":
		return fmt.Sprintf("%s (%s, status %d)", e.Body.Error, e.Body.Code, e.Status)
	case e.Body.Error != "":
		return fmt.Sprintf("%s (status %d)", e.Body.Error, e.Status)
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer // request trace, nil discards
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Long polls hold for up to 25s server side
			Timeout: 30 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) trace(format string, args ...any) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, format, args...)
	}
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyData []byte
	if body != nil {
		var err error
		if bodyData, err = json.Marshal(body); err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyData)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.trace("\n%s\n", display.Blue(fmt.Sprintf("[API] %s %s", method, path)))
	if len(bodyData) > 0 {
		c.traceBody("Request Body:", bodyData)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.trace("%s\n", display.Red("[ERROR] "+err.Error()))
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	status := fmt.Sprintf("[%d %s]", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= 400 {
		c.trace("%s\n", display.Red(status))
	} else {
		c.trace("%s\n", display.Green(status))
	}
	if c.Verbose && len(respBody) > 0 {
		c.traceBody("Response Body:", respBody)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Body); err != nil {
			apiErr.Body.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// traceBody prints a JSON body indented when verbose, raw otherwise
func (c *Client) traceBody(label string, data []byte) {
	if !c.Verbose {
		c.trace("%s\n", display.Blue(string(data)))
		return
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	c.trace("%s\n%s\n", display.Cyan(label), pretty.String())
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

// Search asks the engine for a move in a standalone position
func (c *Client) Search(fen string, depth int, side string) (*core.SearchResponse, error) {
	req := &core.SearchRequest{PositionSnapshot: fen, Depth: depth, Side: side}
	var resp core.SearchResponse
	err := c.doRequest(http.MethodPost, "/api/v1/search", req, &resp)
	return &resp, err
}

func (c *Client) CreateGame(req *core.CreateGameRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) ConfigurePlayers(gameID string, req *core.ConfigurePlayersRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPut, "/api/v1/games/"+gameID+"/players", req, &resp)
	return &resp, err
}

func (c *Client) GetGame(gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+gameID, nil, &resp)
	return &resp, err
}

// GetGameWithPoll waits server side until the game moves past moveCount
func (c *Client) GetGameWithPoll(gameID string, moveCount int) (*core.GameResponse, error) {
	var resp core.GameResponse
	path := fmt.Sprintf("/api/v1/games/%s?wait=true&moveCount=%d", gameID, moveCount)
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(gameID string) error {
	return c.doRequest(http.MethodDelete, "/api/v1/games/"+gameID, nil, nil)
}

func (c *Client) MakeMove(gameID string, move string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/moves", &core.MoveRequest{Move: move}, &resp)
	return &resp, err
}

func (c *Client) UndoMoves(gameID string, count int) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/undo", &core.UndoRequest{Count: count}, &resp)
	return &resp, err
}

func (c *Client) GetBoard(gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+gameID+"/board", nil, &resp)
	return &resp, err
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(method, path string, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}
	return c.doRequest(method, path, bodyData, nil)
}
