package web

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

const writeWait = 10 * time.Second

// commentStream отправляет новые комментарии поста по websocket.
// Подписка оформляется до upgrade, чтобы скрытый пост получил обычный 404.
func (h *Handler) commentStream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	comments, err := h.Service.SubscribeComments(ctx, c.Param("id"), actor(c))
	if err != nil {
		renderError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Клиент ничего не присылает; чтение нужно, чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case comment, ok := <-comments:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(comment); err != nil {
				log.Printf("Websocket write failed: %v", err)
				return
			}
		}
	}
}
