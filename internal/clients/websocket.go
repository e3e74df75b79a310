package clients

import (
	"context"
	"fmt"

	ws "debtboard/internal/transport/websocket"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyRefreshComplete tells every connected dashboard that fresh snapshots
// were published.
func (c *WebSocketClient) NotifyRefreshComplete(ctx context.Context, runID string, records, customers int) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "refresh_complete",
		Channel: "debts_refreshed",
		Data: map[string]interface{}{
			"run_id":    runID,
			"records":   records,
			"customers": customers,
		},
	}

	c.hub.BroadcastAll(message)
	return nil
}

// NotifyRefreshFailed tells every connected dashboard that the last refresh
// aborted and snapshots are stale.
func (c *WebSocketClient) NotifyRefreshFailed(ctx context.Context, runID string, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "refresh_failed",
		Channel: "debts_refreshed",
		Data: map[string]interface{}{
			"run_id":  runID,
			"message": errMsg,
		},
	}

	c.hub.BroadcastAll(message)
	return nil
}

func (c *WebSocketClient) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	if c.hub == nil {
		return nil
	}

	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	message := &ws.Message{
		Type:    "export_progress",
		Channel: fmt.Sprintf("notify_user_of_progress_export#%d", userID),
		Data:    data,
	}

	c.hub.Broadcast(userID, message)
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(ctx context.Context, userID int64, exportID string, url string, filename string) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "export_complete",
		Channel: fmt.Sprintf("notify_user_when_export_complete#%d", userID),
		Data: map[string]interface{}{
			"id":       exportID,
			"url":      url,
			"filename": filename,
			"user_id":  userID,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, userID int64, exportID string, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "export_failed",
		Channel: fmt.Sprintf("notify_user_when_export_failed#%d", userID),
		Data: map[string]interface{}{
			"id":      exportID,
			"message": errMsg,
			"user_id": userID,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}
