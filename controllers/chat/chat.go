package chat

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/Ezizuardo/Trilink/controllers/authentication"
	model "github.com/Ezizuardo/Trilink/models/chat"
	"github.com/Ezizuardo/Trilink/models/users"
)

type Handler struct {
	DB *gorm.DB
}

// getOrCreate находит диалог ровно с этими двумя участниками либо
// создаёт новый.
func (h *Handler) getOrCreate(a, b uint) (*model.Conversation, error) {
	var memberships []model.ConversationMember
	if err := h.DB.Where("user_id IN ?", []uint{a, b}).Find(&memberships).Error; err != nil {
		return nil, err
	}
	byConv := map[uint][]uint{}
	for _, m := range memberships {
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m.UserID)
	}
	for convID, ids := range byConv {
		if len(ids) == 2 && ((ids[0] == a && ids[1] == b) || (ids[0] == b && ids[1] == a)) {
			var c model.Conversation
			if err := h.DB.First(&c, convID).Error; err != nil {
				return nil, err
			}
			return &c, nil
		}
	}

	var conv model.Conversation
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		members := []model.ConversationMember{
			{ConversationID: conv.ID, UserID: a},
			{ConversationID: conv.ID, UserID: b},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Index: GET /chat — диалоги с собеседником и последним сообщением.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)

	var memberships []model.ConversationMember
	if err := h.DB.Where("user_id = ?", p.User.ID).Find(&memberships).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type convRow struct {
		ID    uint           `json:"id"`
		Other *users.User    `json:"other"`
		Last  *model.Message `json:"last,omitempty"`
	}
	out := make([]convRow, 0, len(memberships))
	for _, m := range memberships {
		var other model.ConversationMember
		if err := h.DB.Where("conversation_id = ? AND user_id <> ?", m.ConversationID, p.User.ID).
			First(&other).Error; err != nil {
			continue
		}
		var otherUser users.User
		if err := h.DB.First(&otherUser, other.UserID).Error; err != nil {
			continue
		}
		row := convRow{ID: m.ConversationID, Other: &otherUser}
		var last model.Message
		if err := h.DB.Where("conversation_id = ?", m.ConversationID).
			Order("created_at DESC, id DESC").First(&last).Error; err == nil {
			row.Last = &last
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

// With: GET/POST /chat/with/{id} — переписка с пользователем; POST
// добавляет сообщение.
func (h *Handler) With(w http.ResponseWriter, r *http.Request) {
	p := authentication.CurrentPrincipal(r)
	otherID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if uint(otherID) == p.User.ID {
		writeError(w, http.StatusBadRequest, "нельзя писать самому себе")
		return
	}
	var other users.User
	if err := h.DB.First(&other, uint(otherID)).Error; err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	conv, err := h.getOrCreate(p.User.ID, other.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if r.Method == http.MethodPost {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid input")
			return
		}
		if text := strings.TrimSpace(in.Text); text != "" {
			msg := model.Message{ConversationID: conv.ID, SenderID: p.User.ID, Text: text}
			if err := h.DB.Create(&msg).Error; err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
	}

	var msgs []model.Message
	if err := h.DB.Where("conversation_id = ?", conv.ID).
		Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"other": other, "messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
