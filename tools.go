//go:build tools

package tools

// Pins the swagger generator used by `swag init` to regenerate
// internal/api/docs/swagger.json from the handler annotations.
import (
	_ "github.com/swaggo/swag/cmd/swag"
)
