package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
	"github.com/satriahrh/firdraft/internal/auth"
	"github.com/satriahrh/firdraft/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Time allowed for one request to reach the store or the locator.
	requestTimeout = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HubConfig holds per-connection settings
type HubConfig struct {
	Audio        repositories.AudioConfig
	ConfirmDelay time.Duration
	MessageRate  float64
	MessageBurst int
}

// Hub maintains the set of active clients. Each client owns its own workspace.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	stt       repositories.SpeechToText
	generator *usecase.DraftGenerator
	store     *usecase.DraftStore
	stations  repositories.StationLocator
	issuer    *auth.Issuer
	cfg       HubConfig

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	stt repositories.SpeechToText,
	generator *usecase.DraftGenerator,
	store *usecase.DraftStore,
	stations repositories.StationLocator,
	issuer *auth.Issuer,
	cfg HubConfig,
	logger *zap.Logger,
) *Hub {
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = 20
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 40
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		stt:        stt,
		generator:  generator,
		store:      store,
		stations:   stations,
		issuer:     issuer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.closeSend()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Captures returns the capture session of every connected client
func (h *Hub) Captures() []*usecase.CaptureSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	captures := make([]*usecase.CaptureSession, 0, len(h.clients))
	for _, client := range h.clients {
		captures = append(captures, client.workspace.Capture)
	}
	return captures
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and its workspace.
type Client struct {
	id  string
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send     chan WriteData
	sendMu   sync.Mutex
	sendDone bool

	identity    *auth.TokenSession
	workspace   *usecase.Workspace
	unsubscribe func()
	limiter     *rate.Limiter
	validator   *MessageValidator

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// HandleWebSocketWithAuth upgrades the request for a user whose token the
// caller has already validated
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, token string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := hub.newClient(conn)
	if _, err := client.identity.Authenticate(token); err != nil {
		logger.Warn("WebSocket token rejected after upgrade", zap.Error(err))
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		client.workspace.Close()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	client.refreshDrafts()
	return nil
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	logger := h.logger.With(zap.String("clientID", id))

	client := &Client{
		id:        id,
		hub:       h,
		conn:      conn,
		send:      make(chan WriteData, 256),
		identity:  auth.NewTokenSession(h.issuer, logger),
		limiter:   rate.NewLimiter(rate.Limit(h.cfg.MessageRate), h.cfg.MessageBurst),
		validator: NewMessageValidator(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	capture := usecase.NewCaptureSession(h.stt, h.generator, h.store, client,
		usecase.CaptureConfig{Audio: h.cfg.Audio}, logger)
	editor := usecase.NewDraftEditor(h.store, client, h.cfg.ConfirmDelay, logger)
	client.workspace = usecase.NewWorkspace(client.identity, capture, editor, logger)
	client.unsubscribe = client.identity.Subscribe(func(id repositories.Identity, signedIn bool) {
		if !signedIn {
			client.enqueueJSON(&SignedOutMessage{BaseMessage: newBase(MessageTypeSignedOut)})
		}
	})
	return client
}

// readPump pumps messages from the websocket connection to the workspace.
func (c *Client) readPump() {
	defer func() {
		c.unsubscribe()
		c.workspace.Close()
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueueJSON never blocks: it runs under workspace locks
func (c *Client) enqueueJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendDone {
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send queue full, dropping message")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendDone {
		c.sendDone = true
		close(c.send)
	}
}

func (c *Client) sendError(err error) {
	kind := domain.ErrorKind(err)
	c.logger.Info("Request failed", zap.String("kind", kind), zap.Error(err))
	c.enqueueJSON(CreateErrorMessage(kind, err.Error(), ""))
}

// processMessage dispatches a validated control message
func (c *Client) processMessage(message []byte) {
	if !c.limiter.Allow() {
		c.enqueueJSON(CreateErrorMessage("rate_limited", "Too many messages", ""))
		return
	}

	parsed, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.enqueueJSON(CreateErrorMessage(domain.KindInvalidRequest, "Invalid message", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	switch msg := parsed.(type) {
	case *PingMessage:
		c.enqueueJSON(CreatePongMessage(msg.Data))

	case *AuthMessage:
		c.handleAuth(msg)

	case *CaptureStartMessage:
		language := entities.Language(msg.Language)
		if msg.Type == MessageTypeCaptureToggle {
			err = c.workspace.Capture.Toggle(ctx, language)
		} else {
			err = c.workspace.Capture.Start(ctx, language)
		}
		// capability and recognition failures are already reported as capture errors
		if err != nil && !capturesReportedError(err) {
			c.sendError(err)
		}

	case *DraftSelectMessage:
		draft, err := c.workspace.Editor.Select(msg.DraftID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.enqueueJSON(&DraftSelectedMessage{BaseMessage: newBase(MessageTypeDraftSelected), Draft: draft})

	case *DraftEditTextMessage:
		if err := c.workspace.Editor.SetEditText(msg.Content); err != nil {
			c.sendError(err)
		}

	case *StationsFindMessage:
		stations, err := c.hub.stations.Nearby(ctx, entities.Coordinate{Latitude: *msg.Latitude, Longitude: *msg.Longitude})
		if err != nil {
			c.sendError(err)
			return
		}
		c.enqueueJSON(&StationsMessage{BaseMessage: newBase(MessageTypeStations), Stations: stations})

	case *BaseMessage:
		c.handleSimple(ctx, msg.Type)
	}
}

func (c *Client) handleSimple(ctx context.Context, t MessageType) {
	var err error
	switch t {
	case MessageTypeCaptureStop:
		err = c.workspace.Capture.Stop()
	case MessageTypeDraftSave:
		if _, err = c.workspace.Capture.SaveDraft(ctx); err == nil {
			_, err = c.workspace.Editor.Refresh(ctx)
		} else if isPersistence(err) {
			// already reported through save_status
			err = nil
		}
	case MessageTypeDraftsList:
		_, err = c.workspace.Editor.Refresh(ctx)
	case MessageTypeDraftClose:
		c.workspace.Editor.Close()
	case MessageTypeDraftEditToggle:
		err = c.workspace.Editor.ToggleEdit()
	case MessageTypeDraftEditSave:
		if err = c.workspace.Editor.SaveEdit(ctx); isPersistence(err) {
			// already reported through edit_state
			err = nil
		}
	}
	if err != nil {
		c.sendError(err)
	}
}

func (c *Client) handleAuth(msg *AuthMessage) {
	switch msg.Action {
	case AuthActionAuthenticate:
		id, err := c.identity.Authenticate(msg.Token)
		if err != nil {
			c.logger.Warn("Authentication failed", zap.Error(err))
			c.enqueueJSON(CreateErrorMessage(domain.KindUnauthenticated, "Invalid or expired token", ""))
			return
		}
		c.logger.Info("Client authenticated", zap.String("userID", id.UserID))
		c.refreshDrafts()
	case AuthActionLogout:
		c.workspace.SignOut()
	}
}

func (c *Client) refreshDrafts() {
	if c.workspace.OwnerID() == "" {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()
	if _, err := c.workspace.Editor.Refresh(ctx); err != nil {
		c.sendError(err)
	}
}

// processBinaryAudioChunk forwards audio to the live capture
func (c *Client) processBinaryAudioChunk(data []byte) {
	if err := c.workspace.Capture.AppendAudio(data); err != nil {
		c.logger.Debug("Dropping audio chunk", zap.Int("size", len(data)), zap.Error(err))
	}
}

func capturesReportedError(err error) bool {
	var recErr *domain.RecognitionError
	return errors.Is(err, domain.ErrCapabilityUnavailable) || errors.As(err, &recErr)
}

func isPersistence(err error) bool {
	var persErr *domain.PersistenceError
	return errors.As(err, &persErr)
}

// CaptureStateChanged implements usecase.CaptureEvents
func (c *Client) CaptureStateChanged(snapshot entities.CaptureSnapshot) {
	c.enqueueJSON(CreateCaptureStateMessage(snapshot))
}

// InterimTranscript implements usecase.CaptureEvents
func (c *Client) InterimTranscript(sessionID, text string) {
	c.enqueueJSON(&TranscriptInterimMessage{
		BaseMessage: newBase(MessageTypeTranscriptInterim),
		SessionID:   sessionID,
		Text:        text,
	})
}

// DraftReady implements usecase.CaptureEvents
func (c *Client) DraftReady(sessionID, content string) {
	c.enqueueJSON(&DraftReadyMessage{
		BaseMessage: newBase(MessageTypeDraftReady),
		SessionID:   sessionID,
		Content:     content,
	})
}

// CaptureError implements usecase.CaptureEvents
func (c *Client) CaptureError(kind, message string) {
	c.enqueueJSON(CreateErrorMessage(kind, message, ""))
}

// SaveStatusChanged implements usecase.CaptureEvents
func (c *Client) SaveStatusChanged(status entities.SaveStatus, draft *entities.DraftDocument) {
	c.enqueueJSON(CreateSaveStatusMessage(status, draft))
}

// DraftsChanged implements usecase.EditorEvents
func (c *Client) DraftsChanged(drafts []entities.DraftDocument) {
	c.enqueueJSON(CreateDraftsMessage(drafts))
}

// EditorChanged implements usecase.EditorEvents
func (c *Client) EditorChanged(snapshot entities.EditorSnapshot) {
	c.enqueueJSON(&EditStateMessage{BaseMessage: newBase(MessageTypeEditState), State: snapshot})
}
