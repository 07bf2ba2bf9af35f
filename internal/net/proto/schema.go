package proto

import "github.com/invopop/jsonschema"

// Document groups every wire message so a single schema describes the protocol.
type Document struct {
	Join      JoinMessage      `json:"join"`
	Direction DirectionMessage `json:"direction"`
	Joined    JoinedMessage    `json:"joined"`
	GameState GameStateMessage `json:"gameState"`
	Comment   CommentMessage   `json:"comment"`
}

// Schema reflects the JSON Schema for the websocket protocol.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Document))
	schema.Title = "snak8s websocket protocol"
	schema.Description = "Messages exchanged between snake clients and the room server. Each property names one message type."
	return schema
}
