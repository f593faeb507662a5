// Package livekit is a minimal client for the media server's room service.
// It covers the three calls the platform needs: listing active rooms,
// creating an ingress for a new streamer, and minting viewer access tokens.
package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	listRoomsPath     = "/twirp/livekit.RoomService/ListRooms"
	createIngressPath = "/twirp/livekit.Ingress/CreateIngress"

	// RTMP ingress input type.
	ingressInputRTMP = 0
)

// Room is an active room as reported by the media server. Name carries the
// room identifier, which this platform sets to the stream owner's user ID.
type Room struct {
	Name            string `json:"name"`
	SID             string `json:"sid"`
	NumParticipants int    `json:"num_participants"`
	CreationTime    int64  `json:"creation_time,string"`
}

// Ingress is the RTMP ingest endpoint created for a streamer.
type Ingress struct {
	IngressID string `json:"ingress_id"`
	URL       string `json:"url"`
	StreamKey string `json:"stream_key"`
}

// Client talks to the media server's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient returns a Client for the media server at baseURL.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// videoGrant mirrors the media server's access token grant structure.
type videoGrant struct {
	Room       string `json:"room,omitempty"`
	RoomJoin   bool   `json:"roomJoin,omitempty"`
	RoomList   bool   `json:"roomList,omitempty"`
	RoomAdmin  bool   `json:"roomAdmin,omitempty"`
	CanPublish *bool  `json:"canPublish,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
	Name  string     `json:"name,omitempty"`
}

func (c *Client) mintToken(identity, name string, grant videoGrant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: grant,
		Name:  name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.apiSecret))
}

// BuildViewerToken mints an access token letting identity join the given room.
func (c *Client) BuildViewerToken(room, identity, name string) (string, error) {
	canPublish := false
	return c.mintToken(identity, name, videoGrant{
		Room:       room,
		RoomJoin:   true,
		CanPublish: &canPublish,
	}, 4*time.Hour)
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token, err := c.mintToken(c.apiKey, "", videoGrant{RoomList: true, RoomAdmin: true}, time.Minute)
	if err != nil {
		return fmt.Errorf("mint admin token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("media server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("media server returned %d: %s", resp.StatusCode, string(body))
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ListActiveRooms returns the rooms currently live on the media server.
// A nil error with an empty slice means nothing is live; a non-nil error
// means the directory could not be consulted and callers must not treat
// the result as "no rooms".
func (c *Client) ListActiveRooms(ctx context.Context) ([]Room, error) {
	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := c.post(ctx, listRoomsPath, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Rooms == nil {
		return []Room{}, nil
	}
	return resp.Rooms, nil
}

// CreateIngress provisions an RTMP ingest endpoint publishing into roomName
// under the given participant identity.
func (c *Client) CreateIngress(ctx context.Context, roomName, identity, name string) (*Ingress, error) {
	req := map[string]any{
		"input_type":           ingressInputRTMP,
		"name":                 name,
		"room_name":            roomName,
		"participant_identity": identity,
		"participant_name":     name,
	}
	var ing Ingress
	if err := c.post(ctx, createIngressPath, req, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}
