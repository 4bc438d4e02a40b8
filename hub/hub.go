package hub

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

var ErrRoomForbidden = errors.New("cannot join another user's room")

type message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub menampung semua koneksi waiter. Setiap koneksi berada di paling
// banyak satu room user; broadcast dikirim ke semua koneksi.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[uint]map[*Client]struct{}
	mutex   sync.RWMutex
}

func New() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[uint]map[*Client]struct{}),
	}
}

// Register -> menambahkan koneksi ke hub (belum masuk room)
func (h *Hub) Register(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister -> melepaskan koneksi dan keluar dari room-nya
func (h *Hub) Unregister(c *Client) {
	h.mutex.Lock()
	delete(h.clients, c)
	h.leaveLocked(c)
	h.mutex.Unlock()
	c.close()
}

// Join moves c into the room of userID, leaving any previous room. A client
// may only join its own room unless it is an admin.
func (h *Hub) Join(c *Client, userID uint) error {
	if userID != c.userID && c.role != models.RoleAdmin {
		return ErrRoomForbidden
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if c.room == userID {
		return nil
	}
	h.leaveLocked(c)
	members := h.rooms[userID]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[userID] = members
	}
	members[c] = struct{}{}
	c.room = userID
	return nil
}

func (h *Hub) leaveLocked(c *Client) {
	if c.room == 0 {
		return
	}
	if members := h.rooms[c.room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = 0
}

// RoomSize returns the number of connections joined to userID's room.
func (h *Hub) RoomSize(userID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastTablesChanged -> semua waiter perlu memuat ulang daftar meja
func (h *Hub) BroadcastTablesChanged() {
	h.Broadcast(models.EventTablesChanged, nil)
}

// NotifyOrderReady -> kirim "pedido:listo" hanya ke room waiter pemilik meja
func (h *Hub) NotifyOrderReady(userID uint, payload models.OrderReady) int {
	payload.UserID = userID
	return h.SendToUser(userID, models.EventOrderReady, payload)
}

// Broadcast -> kirim event ke semua koneksi
func (h *Hub) Broadcast(event string, data interface{}) int {
	frame, err := json.Marshal(message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return 0
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	sent := 0
	for c := range h.clients {
		if c.enqueue(frame) {
			sent++
		}
	}
	utils.InfoLogger.WithFields(logrus.Fields{"event": event, "clients": sent}).Debug("broadcast")
	return sent
}

// SendToUser -> kirim event ke room user tertentu
func (h *Hub) SendToUser(userID uint, event string, data interface{}) int {
	frame, err := json.Marshal(message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return 0
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	sent := 0
	for c := range h.rooms[userID] {
		if c.enqueue(frame) {
			sent++
		}
	}
	utils.InfoLogger.WithFields(logrus.Fields{"event": event, "user_id": userID, "clients": sent}).Debug("send to room")
	return sent
}

// Close memutus semua koneksi, dipakai saat server berhenti.
func (h *Hub) Close() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[uint]map[*Client]struct{})
	h.mutex.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// parseRoomID accepts the user id as a JSON number or a numeric string.
func parseRoomID(data json.RawMessage) (uint, error) {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid room id")
	}
	return uint(id), nil
}
