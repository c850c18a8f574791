// Package api provides the Subtrack REST API.
//
//	@title						Subtrack API
//	@version					1.0
//	@description				Subscription and asset management API
//	@accept						json
//	@produce					json
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api
