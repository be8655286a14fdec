package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/core"
	"github.com/peermeet/signal-server/internal/persist"
)

// RoomHandlers provides the REST surface over the persistence
// gateway's view of rooms. Live signaling state is consulted only as
// a fallback when the durable store is unreachable, so callers see
// eventual, not live, participant counts.
type RoomHandlers struct {
	gateway  *persist.Gateway
	registry *core.Registry
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(gateway *persist.Gateway, registry *core.Registry, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		gateway:  gateway,
		registry: registry,
		log:      logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=64"`
	CreatedBy string `json:"createdBy"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	RoomID    string `json:"roomId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
	InMemory  bool   `json:"inMemory,omitempty"`
}

// ParticipantResponse represents a participant in API responses.
type ParticipantResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joinedAt,omitempty"`
	LeftAt   string `json:"leftAt,omitempty"`
}

// CreateRoom handles room creation. The durable write is best-effort:
// a down store never fails the request.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room := &persist.Room{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now(),
	}
	if err := h.gateway.CreateRoom(c.Request.Context(), room); err != nil {
		h.log.Warn().Err(err).Str("room_id", room.ID).Msg("room not persisted")
	}

	h.log.Info().Str("room_id", room.ID).Str("room_name", room.Name).Msg("room created")
	c.JSON(http.StatusCreated, RoomResponse{RoomID: room.ID, Name: room.Name})
}

// GetRoom handles room lookup. Three distinct outcomes: the durable
// record, room_not_found while the store is reachable, and the
// in-memory fallback (or store_unavailable) while it is not.
// GET /api/rooms/:roomId
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	room, err := h.gateway.GetRoom(c.Request.Context(), roomID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, RoomResponse{
			RoomID:    room.ID,
			Name:      room.Name,
			CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, persist.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room_not_found"})
	default:
		if info, live := h.registry.Snapshot(roomID); live {
			c.JSON(http.StatusOK, RoomResponse{
				RoomID:    info.ID,
				Name:      info.Name,
				CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339),
				InMemory:  true,
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store_unavailable"})
	}
}

// ListParticipants handles participant lookup through the gateway's
// view, falling back to the live registry snapshot when the store is
// unreachable.
// GET /api/rooms/:roomId/participants
func (h *RoomHandlers) ListParticipants(c *gin.Context) {
	roomID := c.Param("roomId")

	participants, err := h.gateway.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		if info, live := h.registry.Snapshot(roomID); live {
			response := make([]ParticipantResponse, 0, len(info.Members))
			for _, m := range info.Members {
				response = append(response, ParticipantResponse{ID: m.ID, Name: m.Name})
			}
			c.JSON(http.StatusOK, response)
			return
		}
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store_unavailable"})
		return
	}

	response := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		pr := ParticipantResponse{
			ID:       p.ID,
			Name:     p.Name,
			JoinedAt: p.JoinedAt.UTC().Format(time.RFC3339),
		}
		if p.LeftAt != nil {
			pr.LeftAt = p.LeftAt.UTC().Format(time.RFC3339)
		}
		response = append(response, pr)
	}
	c.JSON(http.StatusOK, response)
}
