// Package packets lets HTTP clients push host packets to the running script.
package packets

import (
	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Forwarder delivers host packets to the script runtime.
type Forwarder interface {
	SendEvent(name string, args []any) error
	RequestShutdown() error
}

// SendPacketRequest is the body of POST /packets.
type SendPacketRequest struct {
	Type string `json:"type" validate:"required,oneof=event shutdown"`
	Name string `json:"name" validate:"required_if=Type event,max=256"`
	Args []any  `json:"args"`
}

// Routes registers the packet endpoint.
func Routes(app *fiber.App, fwd Forwarder) {
	app.Post("/packets", SendPacket(fwd))
}

// SendPacket forwards an event or shutdown packet. The script handles it
// asynchronously, so success is reported as 202.
func SendPacket(fwd Forwarder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, _ := common.BindAndValidate[SendPacketRequest](c)
		if input == nil {
			return nil // error response already written
		}
		if events.IsReserved(eventbus.Key(input.Name)) {
			return common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed",
				"event name "+input.Name+" is reserved")
		}
		var err error
		switch packet.Type(input.Type) {
		case packet.TypeShutdown:
			err = fwd.RequestShutdown()
		default:
			err = fwd.SendEvent(input.Name, input.Args)
		}
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to send packet", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusAccepted, "Packet sent", fiber.Map{"type": input.Type})
	}
}
