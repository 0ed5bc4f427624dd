package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/api/runs"
	"github.com/hbomb79/ytmeta/internal/api/util"
	"github.com/hbomb79/ytmeta/internal/http/websocket"
)

const (
	TITLE_RUN_UPDATE = "RUN_UPDATE"
)

type (
	broadcaster struct {
		socketHub *websocket.SocketHub
		runStore  runs.Service
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, runStore runs.Service) *broadcaster {
	return &broadcaster{socketHub, runStore}
}

// BroadcastRunUpdate pushes the current state of the run with the
// ID provided to every connected client.
func (hub *broadcaster) BroadcastRunUpdate(id uuid.UUID) error {
	run := hub.runStore.GetRun(id)
	if run == nil {
		return fmt.Errorf("cannot broadcast update for run %s: run not found", id)
	}

	hub.broadcast(TITLE_RUN_UPDATE, map[string]interface{}{"run_id": id, "run": runs.NewDto(run)})
	return nil
}

// connectionPayload furnishes newly connected clients with every known run.
func (hub *broadcaster) connectionPayload() map[string]interface{} {
	return map[string]interface{}{"runs": util.ApplyConversion(hub.runStore.GetAllRuns(), runs.NewDto)}
}

func (hub *broadcaster) broadcast(title string, body map[string]interface{}) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  body,
		Type:  websocket.Update,
	})
}
