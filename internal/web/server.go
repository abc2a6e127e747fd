package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"khabarchin/internal/approval"
	"khabarchin/internal/archive"
	"khabarchin/internal/config"
	"khabarchin/internal/report"
	"khabarchin/internal/store"
)

// RenderMarkdown converts command output to HTML for the dashboard console.
func RenderMarkdown(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.DefinitionList),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	From    string `json:"from,omitempty"`
}

// CommandInfo is the command metadata the dashboard autocompletes from.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
	Group       string `json:"group"`
}

type Client struct {
	conn *websocket.Conn
	send chan Message
}

// DispatchFunc runs a named admin command and returns its reply.
type DispatchFunc func(name, args string) (string, error)

type Server struct {
	conf     config.WebConf
	logsFile string
	log      *zap.Logger
	store    *store.Store
	archive  *archive.DB
	dispatch DispatchFunc
	commands []CommandInfo
	metrics  http.Handler
	upgrader websocket.Upgrader
	srv      *http.Server

	mu      sync.Mutex
	clients map[*Client]bool
}

type Deps struct {
	Conf     config.WebConf
	LogsFile string
	Log      *zap.Logger
	Store    *store.Store
	Archive  *archive.DB
	Dispatch DispatchFunc
	Commands []CommandInfo
	Metrics  http.Handler
}

func NewServer(d Deps) *Server {
	return &Server{
		conf:     d.Conf,
		logsFile: d.LogsFile,
		log:      d.Log,
		store:    d.Store,
		archive:  d.Archive,
		dispatch: d.Dispatch,
		commands: d.Commands,
		metrics:  d.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
	}
}

func (ws *Server) Start() {
	r := mux.NewRouter()

	r.HandleFunc("/ws", ws.handleWebSocket)
	r.HandleFunc("/login", ws.handleLogin).Methods("POST")

	r.HandleFunc("/api/pending", ws.authed(ws.handlePending)).Methods("GET")
	r.HandleFunc("/api/stats", ws.authed(ws.handleStats)).Methods("GET")
	r.HandleFunc("/api/recent", ws.authed(ws.handleRecent)).Methods("GET")

	r.HandleFunc("/download/logs", ws.authed(ws.handleDownloadLogs)).Methods("GET")
	r.HandleFunc("/download/xlsx", ws.authed(ws.handleDownloadXLSX)).Methods("GET")

	if ws.metrics != nil {
		r.Handle("/metrics", ws.metrics)
	}

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(ws.conf.StaticDir)))

	ws.srv = &http.Server{
		Addr:    ws.conf.Address,
		Handler: r,
	}

	go func() {
		ws.log.Info("web server started", zap.String("address", ws.conf.Address))
		if err := ws.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.log.Error("web server error", zap.Error(err))
		}
	}()
}

func (ws *Server) Shutdown(ctx context.Context) error {
	if ws.srv == nil {
		return nil
	}
	return ws.srv.Shutdown(ctx)
}

// HandleEvent is wired as the approval machine's transition hook; every
// lifecycle change lands on connected dashboards as it happens.
func (ws *Server) HandleEvent(e approval.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	ws.broadcast(Message{Type: "event", Content: string(payload)})
}

func (ws *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if ws.conf.Password != "" &&
		username == ws.conf.Username && password == ws.conf.Password {
		token, err := ws.generateJWT()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    token,
			Expires:  time.Now().Add(24 * time.Hour),
			Path:     "/",
			HttpOnly: true,
			Secure:   false,
			SameSite: http.SameSiteStrictMode,
		})

		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusUnauthorized)
}

// authorize checks the JWT cookie and that it was minted for our user.
func (ws *Server) authorize(r *http.Request) bool {
	cookie, err := r.Cookie("auth_token")
	if err != nil {
		return false
	}

	token, err := ws.validateJWT(cookie.Value)
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	return ok && claims["username"] == ws.conf.Username
}

func (ws *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ws.authorize(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (ws *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !ws.authorize(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan Message, 256),
	}
	ws.addClient(client)

	// seed the console with what it can do
	if payload, err := json.Marshal(ws.commands); err == nil {
		client.send <- Message{Type: "commands", Content: string(payload)}
	}

	go client.writePump()
	go client.readPump(ws)
}

func (ws *Server) addClient(client *Client) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.clients[client] = true
	ws.log.Debug("web client connected")
}

func (ws *Server) removeClient(client *Client) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.clients[client]; ok {
		delete(ws.clients, client)
		close(client.send)
		ws.log.Debug("web client disconnected")
	}
}

func (ws *Server) broadcast(msg Message) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for client := range ws.clients {
		select {
		case client.send <- msg:
		default:
			// slow client, drop it; removeClient would relock mu
			delete(ws.clients, client)
			close(client.send)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		err := c.conn.WriteJSON(msg)
		if err != nil {
			break
		}
	}
}

func (c *Client) readPump(ws *Server) {
	defer func() {
		ws.removeClient(c)
		c.conn.Close()
	}()

	for {
		_, msgBytes, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "command":
			ws.handleCommand(msg.Content)
		}
	}
}

func (ws *Server) handleCommand(cmd string) {
	ws.log.Debug("web command", zap.String("cmd", cmd))

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	commandName := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := strings.Join(parts[1:], " ")

	// files go over the download endpoints, not the socket
	if commandName == "getlogs" {
		if _, err := os.Stat(ws.logsFile); os.IsNotExist(err) {
			ws.SendLog("فایل گزارش رویدادها پیدا نشد")
			return
		}

		response := `<div class="download-container">
            <p>گزارش رویدادها آماده دانلود است:</p>
            <a href="/download/logs" target="_blank" class="download-btn">
                <i class="bi bi-download me-2"></i>دانلود
            </a>
        </div>`
		ws.SendResponse(response)
		return
	}

	if commandName == "xlsx" {
		response := `<div class="download-container">
            <p>جدول بایگانی آماده دانلود است:</p>
            <a href="/download/xlsx" target="_blank" class="download-btn">
                <i class="bi bi-file-earmark-spreadsheet me-2"></i>دانلود جدول
            </a>
        </div>`
		ws.SendResponse(response)
		return
	}

	response, err := ws.dispatch(commandName, args)
	if err != nil {
		ws.SendLog("❌ " + err.Error())
		return
	}
	if response != "" {
		ws.SendResponse(response)
	}
}

func (ws *Server) SendResponse(result string) {
	html, err := RenderMarkdown(result)
	if err != nil {
		html = strings.ReplaceAll(result, "\n", "<br>")
	}

	ws.broadcast(Message{
		Type:    "response",
		Content: html,
	})
}

// SendLog sends log lines to connected dashboards.
func (ws *Server) SendLog(log string) {
	ws.broadcast(Message{
		Type:    "log",
		Content: log,
	})
}

func (ws *Server) generateJWT() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": ws.conf.Username,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
		"jti":      uuid.New().String(),
	})

	return token.SignedString([]byte(ws.conf.JWTSecret))
}

func (ws *Server) validateJWT(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ws.conf.JWTSecret), nil
	})
}

func (ws *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ws.store.Pending())
}

func (ws *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"stats":   ws.store.Stats(),
		"pending": len(ws.store.Pending()),
		"seen":    ws.store.SeenCount(),
	})
}

const (
	recentLimit     = 100
	xlsxExportLimit = 1000
)

func (ws *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := ws.archive.Recent(recentLimit)
	if err != nil {
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}

func (ws *Server) handleDownloadLogs(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(ws.logsFile); os.IsNotExist(err) {
		http.Error(w, "Log file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=khabarchin_logs.txt")
	w.Header().Set("Content-Type", "text/plain")

	http.ServeFile(w, r, ws.logsFile)
}

// handleDownloadXLSX builds the workbook from the archive on every request,
// nothing is cached on disk.
func (ws *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	entries, err := ws.archive.Recent(xlsxExportLimit)
	if err != nil {
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	fileBuffer, err := report.GenerateXLSX(entries)
	if err != nil {
		http.Error(w, "could not generate workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=khabarchin.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Write(fileBuffer.Bytes())
}
