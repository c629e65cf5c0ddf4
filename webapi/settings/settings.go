// Package settings exposes the project settings database over HTTP.
package settings

import (
	"net/url"

	repo "github.com/amirasaad/awgen/pkg/repository/settings"
	"github.com/amirasaad/awgen/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers the settings endpoints.
func Routes(app *fiber.App, store repo.Store) {
	group := app.Group("/settings")
	group.Get("/", ListSettings(store))
	group.Get("/:key", GetSetting(store))
	group.Put("/:key", SetSetting(store))
	group.Delete("/:key", ClearSetting(store))
}

// ListSettings returns every stored setting.
func ListSettings(store repo.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := store.All(c.Context())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list settings", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Settings fetched", all)
	}
}

// GetSetting returns the value stored under :key.
func GetSetting(store repo.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := keyParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid setting key", err, fiber.StatusBadRequest)
		}
		value, err := store.GetSetting(c.Context(), key)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get setting", err)
		}
		if value == nil {
			return common.ProblemDetailsJSON(c, "Setting not found", nil, "no value stored for "+key, fiber.StatusNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Setting fetched", SettingDto{Key: key, Value: *value})
	}
}

// SetSetting stores the request value under :key.
func SetSetting(store repo.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := keyParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid setting key", err, fiber.StatusBadRequest)
		}
		input, _ := common.BindAndValidate[SetSettingRequest](c)
		if input == nil {
			return nil // error response already written
		}
		if err := store.SetSetting(c.Context(), key, input.Value); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to store setting", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Setting stored", SettingDto{Key: key, Value: *input.Value})
	}
}

// ClearSetting removes :key from the store.
func ClearSetting(store repo.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := keyParam(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid setting key", err, fiber.StatusBadRequest)
		}
		if err := store.SetSetting(c.Context(), key, nil); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to clear setting", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func keyParam(c *fiber.Ctx) (string, error) {
	return url.PathUnescape(c.Params("key"))
}
