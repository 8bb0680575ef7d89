package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CLI streams a recorded statement to the server and prints the generated draft.
type CLI struct {
	Server     string        `flag:"" default:"http://localhost:8080" help:"Server base URL"`
	User       string        `flag:"" default:"dev-user" help:"User id for the development token"`
	Email      string        `flag:"" optional:"" help:"Email for the development token"`
	Token      string        `flag:"" env:"FIRDRAFT_TOKEN" optional:"" help:"Use this token instead of requesting a development token"`
	Language   string        `flag:"" default:"en" enum:"en,hi,mr" help:"Statement language"`
	Audio      string        `arg:"" type:"existingfile" help:"Raw audio file matching the server's STT_ENCODING and STT_SAMPLE_RATE"`
	ChunkSize  int           `flag:"" default:"4096" help:"Bytes per audio frame"`
	ChunkDelay time.Duration `flag:"" default:"100ms" help:"Delay between audio frames"`
	Timeout    time.Duration `flag:"" default:"90s" help:"How long to wait for the draft"`
	Save       bool          `flag:"" help:"Save the generated draft"`
}

type event map[string]interface{}

func (e event) kind() string {
	t, _ := e["type"].(string)
	return t
}

func (e event) state(key string) interface{} {
	state, _ := e["state"].(map[string]interface{})
	return state[key]
}

// Run executes the capture flow.
func (c *CLI) Run(logger *zap.Logger) error {
	token := c.Token
	if token == "" {
		var err error
		token, err = c.devToken()
		if err != nil {
			return fmt.Errorf("requesting development token: %w", err)
		}
		logger.Info("Obtained development token", zap.String("user", c.User))
	}

	wsURL, err := websocketURL(c.Server)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, headers)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()
	logger.Info("Connected", zap.String("url", wsURL))

	events := make(chan event, 64)
	go readEvents(conn, events, logger)

	if err := conn.WriteJSON(map[string]string{"type": "capture_start", "language": c.Language}); err != nil {
		return err
	}
	if _, err := waitFor(events, c.Timeout, func(e event) (bool, error) {
		return e.kind() == "capture_state" && e.state("status") == "listening", nil
	}); err != nil {
		return fmt.Errorf("waiting for capture to start: %w", err)
	}

	if err := c.streamAudio(conn, logger); err != nil {
		return err
	}

	if err := conn.WriteJSON(map[string]string{"type": "capture_stop"}); err != nil {
		return err
	}

	ready, err := waitFor(events, c.Timeout, func(e event) (bool, error) {
		switch {
		case e.kind() == "draft_ready":
			return true, nil
		case e.kind() == "capture_state" && e.state("status") == "idle":
			return false, errors.New("no speech was captured")
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	fmt.Println(ready["content"])

	if !c.Save {
		return nil
	}

	if err := conn.WriteJSON(map[string]string{"type": "draft_save"}); err != nil {
		return err
	}
	saved, err := waitFor(events, c.Timeout, func(e event) (bool, error) {
		if e.kind() != "save_status" {
			return false, nil
		}
		switch e["status"] {
		case "Saved!":
			return true, nil
		case "Save failed.":
			return false, errors.New("save failed")
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if draft, ok := saved["draft"].(map[string]interface{}); ok {
		logger.Info("Draft saved", zap.Any("id", draft["id"]), zap.Any("title", draft["title"]))
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func (c *CLI) devToken() (string, error) {
	body, err := json.Marshal(map[string]string{"user_id": c.User, "email": c.Email})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(strings.TrimRight(c.Server, "/")+"/api/v1/auth/dev-token", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *CLI) streamAudio(conn *websocket.Conn, logger *zap.Logger) error {
	audio, err := os.ReadFile(c.Audio)
	if err != nil {
		return fmt.Errorf("reading audio: %w", err)
	}

	chunks := 0
	for start := 0; start < len(audio); start += c.ChunkSize {
		end := start + c.ChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[start:end]); err != nil {
			return fmt.Errorf("sending audio frame %d: %w", chunks, err)
		}
		chunks++
		time.Sleep(c.ChunkDelay)
	}

	logger.Info("Finished streaming audio", zap.Int("bytes", len(audio)), zap.Int("frames", chunks))
	return nil
}

func readEvents(conn *websocket.Conn, events chan<- event, logger *zap.Logger) {
	defer close(events)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Connection closed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var e event
		if err := json.Unmarshal(data, &e); err != nil {
			logger.Warn("Unreadable message", zap.Error(err))
			continue
		}

		switch e.kind() {
		case "transcript_interim":
			logger.Info("Hearing", zap.Any("text", e["text"]))
		case "capture_state":
			logger.Info("Capture state", zap.Any("status", e.state("status")))
		case "error":
			logger.Warn("Server error", zap.Any("code", e["error_code"]), zap.Any("message", e["message"]))
		default:
			logger.Debug("Event", zap.String("type", e.kind()))
		}
		events <- e
	}
}

// waitFor consumes events until match accepts one, an error event arrives or
// the timeout passes
func waitFor(events <-chan event, timeout time.Duration, match func(event) (bool, error)) (event, error) {
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return nil, errors.New("connection closed")
			}
			if e.kind() == "error" {
				return nil, fmt.Errorf("%v: %v", e["error_code"], e["message"])
			}
			done, err := match(e)
			if err != nil {
				return nil, err
			}
			if done {
				return e, nil
			}
		case <-deadline:
			return nil, errors.New("timed out")
		}
	}
}

func websocketURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("captureclient"),
		kong.Description("Stream a recorded statement to the FIR draft server."))
	err = ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
