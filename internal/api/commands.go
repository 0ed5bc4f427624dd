package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/api/runs"
	"github.com/hbomb79/ytmeta/internal/http/websocket"
)

const (
	COMMAND_RUN_LIST = "RUN_LIST"
	COMMAND_RUN_GET  = "RUN_GET"

	TITLE_RUN_LIST = "RUN_LIST"
	TITLE_RUN      = "RUN"
)

// listRuns replies to the client with every known run.
func (hub *broadcaster) listRuns(socket *websocket.SocketHub, command *websocket.SocketMessage) error {
	socket.Send(command.FormReply(TITLE_RUN_LIST, hub.connectionPayload(), websocket.Response))
	return nil
}

// getRun replies to the client with the run identified by the 'id' argument.
func (hub *broadcaster) getRun(socket *websocket.SocketHub, command *websocket.SocketMessage) error {
	if err := command.ValidateArguments(map[string]websocket.ArgumentType{"id": websocket.UUIDArgument}); err != nil {
		return err
	}

	id := uuid.MustParse(command.Body["id"].(string))
	run := hub.runStore.GetRun(id)
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	socket.Send(command.FormReply(TITLE_RUN, map[string]interface{}{"run": runs.NewDto(run)}, websocket.Response))
	return nil
}
