package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
	"github.com/xhad/mercury/pkg/annotations"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // annotation tool runs on a trusted host
	},
}

// Selection is a span the annotator highlighted, in character offsets of the
// document it was made in. Task indexes are 0-based on the wire; sample ids
// are 1-based internally.
type Selection struct {
	Start       int  `json:"start"`
	End         int  `json:"end"`
	FromSummary bool `json:"from_summary"`
}

// LabelRequest is one submitted annotation.
type LabelRequest struct {
	SummaryStart int    `json:"summary_start"`
	SummaryEnd   int    `json:"summary_end"`
	SourceStart  int    `json:"source_start"`
	SourceEnd    int    `json:"source_end"`
	Consistent   bool   `json:"consistent"`
	UserID       string `json:"user_id"`
}

// Message is the websocket envelope for the interactive selection channel.
type Message struct {
	Type      string      `json:"type"`
	Content   string      `json:"content,omitempty"`
	TaskIndex int         `json:"task_index,omitempty"`
	Selection *Selection  `json:"selection,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type Config struct {
	Port string
	// DumpFile is where POST /dump writes the joined annotation export.
	DumpFile string
}

type Server struct {
	config  Config
	store   types.ChunkStore
	aligner types.Aligner
	labels  *annotations.Store
}

func New(config Config, store types.ChunkStore, aligner types.Aligner, labels *annotations.Store) *Server {
	if config.Port == "" {
		config.Port = "8000"
	}
	if config.DumpFile == "" {
		config.DumpFile = "mercury_annotations.json"
	}
	return &Server{
		config:  config,
		store:   store,
		aligner: aligner,
		labels:  labels,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /task", s.handleTaskCount)
	mux.HandleFunc("GET /task/{index}", s.handleGetTask)
	mux.HandleFunc("POST /task/{index}", s.handlePostLabel)
	mux.HandleFunc("POST /task/{index}/select", s.handleSelect)
	mux.HandleFunc("GET /export/{user}", s.handleExport)
	mux.HandleFunc("POST /dump", s.handleDump)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("Starting annotation server on port %s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, s.Handler())
}

func (s *Server) handleTaskCount(w http.ResponseWriter, r *http.Request) {
	max, err := s.store.MaxSampleID(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"all": max})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	sampleID, ok := s.sampleID(w, r)
	if !ok {
		return
	}

	source, err := s.store.Document(r.Context(), sampleID, models.RoleSource)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	summary, err := s.store.Document(r.Context(), sampleID, models.RoleSummary)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"doc": source,
		"sum": summary,
	})
}

func (s *Server) handlePostLabel(w http.ResponseWriter, r *http.Request) {
	sampleID, ok := s.sampleID(w, r)
	if !ok {
		return
	}

	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed label")
		return
	}

	s.labels.Push(annotations.Label{
		SampleID:     sampleID,
		SummaryStart: req.SummaryStart,
		SummaryEnd:   req.SummaryEnd,
		SourceStart:  req.SourceStart,
		SourceEnd:    req.SourceEnd,
		Consistent:   req.Consistent,
		Annotator:    req.UserID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sampleID, ok := s.sampleID(w, r)
	if !ok {
		return
	}

	var sel Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, "malformed selection")
		return
	}

	matches, err := s.align(r, sampleID, sel)
	if err != nil {
		s.writeAlignError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	labels := s.labels.ExportUser(r.PathValue("user"))
	if labels == nil {
		labels = []annotations.Label{}
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	entries, err := s.labels.Dump(r.Context(), s.store, s.config.DumpFile)
	if err != nil {
		log.Printf("dump error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to dump annotations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file":    s.config.DumpFile,
		"samples": len(entries),
	})
}

func (s *Server) align(r *http.Request, sampleID int64, sel Selection) ([]models.Match, error) {
	role := models.RoleSource
	if sel.FromSummary {
		role = models.RoleSummary
	}
	return s.aligner.Align(r.Context(), sampleID, role, sel.Start, sel.End)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "malformed message"})
			continue
		}
		s.handleMessage(conn, r, msg)
	}
}

func (s *Server) handleMessage(conn *websocket.Conn, r *http.Request, msg Message) {
	switch msg.Type {
	case "select":
		if msg.Selection == nil {
			s.sendMessage(conn, Message{Type: "error", Content: "missing selection"})
			return
		}
		matches, err := s.align(r, int64(msg.TaskIndex)+1, *msg.Selection)
		if err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: userMessage(err)})
			return
		}
		s.sendMessage(conn, Message{Type: "selections", TaskIndex: msg.TaskIndex, Data: matches})
	default:
		s.sendMessage(conn, Message{Type: "error", Content: "unknown message type"})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) sampleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "Invalid task index")
		return 0, false
	}
	return index + 1, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrEmptyCorpus) {
		writeError(w, http.StatusBadRequest, "Invalid task index")
		return
	}
	log.Printf("store error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeAlignError maps the alignment failure taxonomy onto user-visible
// responses: bad selections are benign 400s, embedding trouble is a
// retryable 503.
func (s *Server) writeAlignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.ErrEmptyCorpus):
		writeError(w, http.StatusBadRequest, "invalid selection")
	case models.IsEmbeddingError(err):
		log.Printf("embedding error: %v", err)
		writeError(w, http.StatusServiceUnavailable, "search unavailable")
	default:
		log.Printf("alignment error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.ErrEmptyCorpus):
		return "invalid selection"
	case models.IsEmbeddingError(err):
		return "search unavailable"
	default:
		return "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
