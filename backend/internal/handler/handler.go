package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"community-service/backend/internal/action"
	"community-service/backend/internal/ws"
)

type Handler struct {
	svc *action.Service
	ws  *ws.Manager
}

func New(svc *action.Service, manager *ws.Manager) *Handler {
	return &Handler{svc: svc, ws: manager}
}

// Register mounts every route on r, which is expected to carry the auth middleware.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/posts/:postID/like/toggle", makeTargetHandler("postID", h.svc.ToggleLike))
	r.POST("/posts/:postID/bookmark/toggle", makeTargetHandler("postID", h.svc.ToggleBookmark))
	r.POST("/posts/:postID/view", makeTargetHandler("postID", h.svc.RecordView))
	r.GET("/posts/:postID/stats", makeTargetHandler("postID", h.svc.PostStats))
	r.POST("/users/:userID/follow/toggle", makeTargetHandler("userID", h.svc.ToggleFollow))

	r.GET("/history", h.ListHistory())
	r.DELETE("/history", makeCallerHandler(h.svc.ClearHistory))

	r.GET("/notifications", h.ListNotifications())
	r.GET("/notifications/unread_count", makeCallerHandler(h.svc.UnreadCount))
	r.POST("/notifications/read", h.MarkNotificationsRead())
	r.DELETE("/notifications/:id", h.DeleteNotification())
	r.DELETE("/notifications", makeCallerHandler(h.svc.ClearNotifications))
	if h.ws != nil {
		r.GET("/notifications/ws", h.ws.Connect)
	}

	r.GET("/store", makeCallerHandler(h.svc.Store))
	r.GET("/store/rarities", h.BadgeRarities())
	r.POST("/store/badges/:badgeID/purchase", makeTargetHandler("badgeID", h.svc.PurchaseBadge))
	r.POST("/profile/badge", h.EquipBadge())
}

// makeTargetHandler adapts an action on one numeric path parameter.
func makeTargetHandler[T any](param string, fn func(context.Context, uint64) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil || id == 0 {
			fail(c, action.NewError(action.KindInvalidArgument, "invalid "+param))
			return
		}
		res, err := fn(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// makeCallerHandler adapts an action that only needs the caller.
func makeCallerHandler[T any](fn func(context.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := fn(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, action.NewError(action.KindInvalidArgument, "invalid limit")
	}
	return n, nil
}

func (h *Handler) ListHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := queryLimit(c)
		if err != nil {
			fail(c, err)
			return
		}
		rows, err := h.svc.ListHistory(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"history": rows})
	}
}

func (h *Handler) ListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := queryLimit(c)
		if err != nil {
			fail(c, err)
			return
		}
		unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
		rows, err := h.svc.ListNotifications(c.Request.Context(), limit, unreadOnly)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"notifications": rows})
	}
}

// MarkNotificationsRead takes {"ids": [...]}; an empty body or list marks all.
func (h *Handler) MarkNotificationsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, action.NewError(action.KindInvalidArgument, "invalid request body"))
			return
		}
		res, err := h.svc.MarkNotificationsRead(c.Request.Context(), req.IDs)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

func (h *Handler) DeleteNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.DeleteNotification(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}

func (h *Handler) BadgeRarities() gin.HandlerFunc {
	return func(c *gin.Context) {
		rarities, err := h.svc.BadgeRarities(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"rarities": rarities})
	}
}

type equipRequest struct {
	// raw, so a missing key and an explicit null stay apart
	BadgeID json.RawMessage `json:"badgeId"`
}

// EquipBadge takes {"badgeId": 12} or {"badgeId": null}; the key is required so
// an empty body cannot unequip by accident.
func (h *Handler) EquipBadge() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req equipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, action.NewError(action.KindInvalidArgument, "invalid request body"))
			return
		}
		if len(req.BadgeID) == 0 {
			fail(c, action.NewError(action.KindInvalidArgument, "badgeId is required"))
			return
		}
		var badgeID *uint64
		if err := json.Unmarshal(req.BadgeID, &badgeID); err != nil {
			fail(c, action.NewError(action.KindInvalidArgument, "badgeId must be a badge id or null"))
			return
		}
		res, err := h.svc.EquipBadge(c.Request.Context(), badgeID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}
