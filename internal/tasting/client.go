package tasting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"tastingroom/internal/deck"
)

// Client is the HTTP face of the tasting service, shaped to the editor's
// Store interface so an Editor can run anywhere the service is reachable.
type Client struct {
	BaseURL string
	UserID  string
	HTTP    *http.Client
}

func NewClient(baseURL, userID string) *Client {
	return &Client{
		BaseURL: baseURL,
		UserID:  userID,
		HTTP:    http.DefaultClient,
	}
}

var _ deck.Store = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-Id", c.UserID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) FetchEditorData(ctx context.Context, packageCode string) (*deck.EditorData, error) {
	var res struct {
		Package Package `json:"package"`
		Wines   []Wine  `json:"wines"`
		Slides  []Slide `json:"slides"`
	}
	if err := c.do(ctx, "GET", "/editor/"+packageCode, nil, http.StatusOK, &res); err != nil {
		return nil, err
	}

	data := &deck.EditorData{
		Package: deck.Package{
			ID:          res.Package.ID,
			Code:        res.Package.Code,
			HostID:      res.Package.HostID,
			Name:        res.Package.Name,
			Description: res.Package.Description,
		},
	}
	for _, wn := range res.Wines {
		data.Wines = append(data.Wines, toDeckWine(wn))
	}
	for _, sl := range res.Slides {
		ds, err := toDeckSlide(sl)
		if err != nil {
			return nil, fmt.Errorf("slide %s: %w", sl.ID, err)
		}
		data.Slides = append(data.Slides, ds)
	}
	return data, nil
}

func (c *Client) CreateSlide(ctx context.Context, slide deck.Slide) (deck.Slide, error) {
	payload, err := json.Marshal(slide.Payload)
	if err != nil {
		return deck.Slide{}, err
	}
	body := map[string]any{
		"type":        string(slide.Type),
		"sectionType": string(slide.Section),
		"payload":     json.RawMessage(payload),
	}
	var created Slide
	if err := c.do(ctx, "POST", "/wines/"+slide.WineID+"/slides", body, http.StatusCreated, &created); err != nil {
		return deck.Slide{}, err
	}
	return toDeckSlide(created)
}

func (c *Client) UpdateSlide(ctx context.Context, slideID string, upd deck.SlideUpdate) (deck.Slide, error) {
	body := map[string]any{}
	if upd.Section != nil {
		body["sectionType"] = string(*upd.Section)
	}
	if upd.Payload != nil {
		payload, err := json.Marshal(upd.Payload)
		if err != nil {
			return deck.Slide{}, err
		}
		body["payload"] = json.RawMessage(payload)
	}
	var updated Slide
	if err := c.do(ctx, "PATCH", "/slides/"+slideID, body, http.StatusOK, &updated); err != nil {
		return deck.Slide{}, err
	}
	return toDeckSlide(updated)
}

func (c *Client) DeleteSlide(ctx context.Context, slideID string) error {
	return c.do(ctx, "DELETE", "/slides/"+slideID, nil, http.StatusNoContent, nil)
}

func (c *Client) ReorderSlides(ctx context.Context, wineID string, updates []deck.PositionUpdate) error {
	body := map[string]any{
		"updates": updates,
	}
	return c.do(ctx, "POST", "/wines/"+wineID+"/slides/reorder", body, http.StatusOK, nil)
}

func (c *Client) CreateWine(ctx context.Context, wine deck.Wine) (deck.Wine, error) {
	body := map[string]any{
		"name":        wine.Name,
		"description": wine.Description,
	}
	var created Wine
	if err := c.do(ctx, "POST", "/packages/"+wine.PackageID+"/wines", body, http.StatusCreated, &created); err != nil {
		return deck.Wine{}, err
	}
	return toDeckWine(created), nil
}

func (c *Client) UpdateWine(ctx context.Context, wineID string, upd deck.WineUpdate) (deck.Wine, error) {
	body := map[string]any{}
	if upd.Name != nil {
		body["name"] = *upd.Name
	}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}
	var updated Wine
	if err := c.do(ctx, "PATCH", "/wines/"+wineID, body, http.StatusOK, &updated); err != nil {
		return deck.Wine{}, err
	}
	return toDeckWine(updated), nil
}

func (c *Client) DeleteWine(ctx context.Context, wineID string) error {
	return c.do(ctx, "DELETE", "/wines/"+wineID, nil, http.StatusNoContent, nil)
}
