package sessions

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// Client records therapy sessions against the companion REST backend. It
// implements domain.SessionSink.
type Client struct {
	http *resty.Client
	log  *logrus.Logger
}

// NewClient points a session recorder at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(5 * time.Second),
		log: log,
	}
}

type beginRequest struct {
	Mode      string `json:"mode"`
	Intensity int    `json:"intensity"`
	Duration  int64  `json:"duration"`
}

type beginResponse struct {
	ID uint `json:"id"`
}

// Begin posts a session-start record and returns the backend's id for it.
func (c *Client) Begin(mode domain.TherapyMode, intensity int) (uint, error) {
	var out beginResponse
	resp, err := c.http.R().
		SetBody(beginRequest{Mode: string(mode), Intensity: intensity}).
		SetResult(&out).
		Post("/api/sessions")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("session create returned %s", resp.Status())
	}
	return out.ID, nil
}

// End patches the session closed; the backend computes the duration.
func (c *Client) End(id uint) error {
	resp, err := c.http.R().
		SetPathParam("id", fmt.Sprint(id)).
		Patch("/api/sessions/{id}")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("session end returned %s", resp.Status())
	}
	return nil
}
